// Package umlconfig loads the editor's tunables from .umlcanvas.yaml.
package umlconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/umlcanvas/umlcanvas"
	"oss.terrastruct.com/umlcanvas/umllayout"
	"oss.terrastruct.com/umlcanvas/umlsession"
)

const FileName = ".umlcanvas.yaml"

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Canvas  CanvasConfig  `yaml:"canvas"`
	Gesture GestureConfig `yaml:"gesture"`
	Layout  LayoutConfig  `yaml:"layout"`
	History HistoryConfig `yaml:"history"`
	Session SessionConfig `yaml:"session"`
}

type CanvasConfig struct {
	CellSize float64 `yaml:"cellSize"`
	MinScale float64 `yaml:"minScale"`
	MaxScale float64 `yaml:"maxScale"`
}

// GestureConfig values are screen pixels.
type GestureConfig struct {
	HandleRadius  float64 `yaml:"handleRadius"`
	EdgeTolerance float64 `yaml:"edgeTolerance"`
	DragThreshold float64 `yaml:"dragThreshold"`
}

type LayoutConfig struct {
	EdgeSpacing   float64 `yaml:"edgeSpacing"`
	DefaultWidth  float64 `yaml:"defaultWidth"`
	DefaultHeight float64 `yaml:"defaultHeight"`
}

type HistoryConfig struct {
	Depth int `yaml:"depth"`
}

type SessionConfig struct {
	SyncTimeout time.Duration `yaml:"syncTimeout"`
	// DB is the SQLite file. Empty keeps sessions in memory.
	DB string `yaml:"db"`
}

func DefaultConfig() *Config {
	opts := umlcanvas.DefaultOptions()
	return &Config{
		Canvas: CanvasConfig{
			CellSize: opts.CellSize,
			MinScale: opts.MinScale,
			MaxScale: opts.MaxScale,
		},
		Gesture: GestureConfig{
			HandleRadius:  opts.HandleRadius,
			EdgeTolerance: opts.EdgeTolerance,
			DragThreshold: opts.DragThreshold,
		},
		Layout: LayoutConfig{
			EdgeSpacing:   opts.EdgeSpacing,
			DefaultWidth:  umllayout.DefaultShapeWidth,
			DefaultHeight: umllayout.DefaultShapeHeight,
		},
		History: HistoryConfig{
			Depth: opts.HistoryDepth,
		},
		Session: SessionConfig{
			SyncTimeout: umlsession.DefaultSyncTimeout,
			DB:          filepath.Join(".umlcanvas", "sessions.db"),
		},
	}
}

// Load reads FileName from dir. A missing file gives the defaults.
func Load(dir string) (*Config, error) {
	return LoadFromPath(filepath.Join(dir, FileName))
}

// LoadFromPath reads the config at path over the defaults, so keys left out
// of the file keep their default values.
func LoadFromPath(path string) (_ *Config, err error) {
	defer xdefer.Errorf(&err, "failed to load config %q", path)

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	positive := []struct {
		name string
		v    float64
	}{
		{"canvas.cellSize", c.Canvas.CellSize},
		{"canvas.minScale", c.Canvas.MinScale},
		{"canvas.maxScale", c.Canvas.MaxScale},
		{"gesture.handleRadius", c.Gesture.HandleRadius},
		{"gesture.edgeTolerance", c.Gesture.EdgeTolerance},
		{"gesture.dragThreshold", c.Gesture.DragThreshold},
		{"layout.edgeSpacing", c.Layout.EdgeSpacing},
		{"layout.defaultWidth", c.Layout.DefaultWidth},
		{"layout.defaultHeight", c.Layout.DefaultHeight},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %v", ErrInvalid, p.name, p.v)
		}
	}
	if c.Canvas.MinScale > c.Canvas.MaxScale {
		return fmt.Errorf("%w: canvas.minScale %v exceeds canvas.maxScale %v", ErrInvalid, c.Canvas.MinScale, c.Canvas.MaxScale)
	}
	if c.History.Depth <= 0 {
		return fmt.Errorf("%w: history.depth must be positive, got %d", ErrInvalid, c.History.Depth)
	}
	if c.Session.SyncTimeout <= 0 {
		return fmt.Errorf("%w: session.syncTimeout must be positive, got %v", ErrInvalid, c.Session.SyncTimeout)
	}
	return nil
}

func (c *Config) Options() umlcanvas.Options {
	return umlcanvas.Options{
		HandleRadius:  c.Gesture.HandleRadius,
		EdgeTolerance: c.Gesture.EdgeTolerance,
		DragThreshold: c.Gesture.DragThreshold,
		CellSize:      c.Canvas.CellSize,
		EdgeSpacing:   c.Layout.EdgeSpacing,
		MinScale:      c.Canvas.MinScale,
		MaxScale:      c.Canvas.MaxScale,
		HistoryDepth:  c.History.Depth,
	}
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
