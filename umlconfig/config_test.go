package umlconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/umlcanvas/umlcanvas"
)

func TestLoadMissingGivesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, umlcanvas.DefaultOptions(), cfg.Options())
}

func TestLoadPartial(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, FileName), []byte(`
canvas:
  cellSize: 32
gesture:
  edgeTolerance: 10
history:
  depth: 25
session:
  syncTimeout: 1s
  db: ""
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 32., cfg.Canvas.CellSize)
	assert.Equal(t, 10., cfg.Gesture.EdgeTolerance)
	assert.Equal(t, 25, cfg.History.Depth)
	assert.Equal(t, time.Second, cfg.Session.SyncTimeout)
	assert.Equal(t, "", cfg.Session.DB)

	// untouched keys keep defaults
	def := DefaultConfig()
	assert.Equal(t, def.Canvas.MaxScale, cfg.Canvas.MaxScale)
	assert.Equal(t, def.Gesture.HandleRadius, cfg.Gesture.HandleRadius)
	assert.Equal(t, def.Layout, cfg.Layout)

	opts := cfg.Options()
	assert.Equal(t, 32., opts.CellSize)
	assert.Equal(t, 25, opts.HistoryDepth)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		mutate func(*Config)
		valid  bool
	}{
		{
			name:   "defaults",
			mutate: func(*Config) {},
			valid:  true,
		},
		{
			name:   "zero_cell",
			mutate: func(c *Config) { c.Canvas.CellSize = 0 },
		},
		{
			name:   "negative_tolerance",
			mutate: func(c *Config) { c.Gesture.EdgeTolerance = -1 },
		},
		{
			name: "inverted_scale",
			mutate: func(c *Config) {
				c.Canvas.MinScale = 4
				c.Canvas.MaxScale = 2
			},
		},
		{
			name:   "zero_depth",
			mutate: func(c *Config) { c.History.Depth = 0 },
		},
		{
			name:   "zero_timeout",
			mutate: func(c *Config) { c.Session.SyncTimeout = 0 },
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("history: {depth: -2}\n"), 0644))
	_, err := LoadFromPath(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("canvas: [1, 2\n"), 0644))
	_, err = LoadFromPath(path)
	assert.Error(t, err)
}

func TestMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	b, err := DefaultConfig().Marshal()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, b, 0644))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}
