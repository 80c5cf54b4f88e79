package umlcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"

	"oss.terrastruct.com/umlcanvas/lib/log"
	"oss.terrastruct.com/umlcanvas/lib/version"
	"oss.terrastruct.com/umlcanvas/lib/xmain"
	"oss.terrastruct.com/umlcanvas/umlgraph"
	"oss.terrastruct.com/umlcanvas/umllayout"
)

type nopWriteCloser struct {
	*bytes.Buffer
}

func (nopWriteCloser) Close() error { return nil }

func testState(t *testing.T, args ...string) (*xmain.State, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	ms := &xmain.State{
		Name: "umlcanvas",

		Stdin:  strings.NewReader(""),
		Stdout: nopWriteCloser{stdout},
		Stderr: nopWriteCloser{&bytes.Buffer{}},

		Env: xos.NewEnv(nil),
	}
	ms.Log = cmdlog.NewTB(ms.Env, t)
	ms.Opts = xmain.NewOpts(ms.Env, ms.Log, args)
	return ms, stdout
}

func runMain(t *testing.T, args ...string) (string, error) {
	ctx := log.WithTB(context.Background(), t, nil)
	ms, stdout := testState(t, args...)
	err := Run(ctx, ms)
	return stdout.String(), err
}

func writeSnapshot(t *testing.T, dir, name string, snap *umlgraph.Snapshot) string {
	t.Helper()
	b, err := umlgraph.MarshalSnapshot(snap)
	require.NoError(t, err)
	fp := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fp, b, 0644))
	return fp
}

func readSnapshotFile(t *testing.T, fp string) *umlgraph.Snapshot {
	t.Helper()
	b, err := os.ReadFile(fp)
	require.NoError(t, err)
	snap, err := umlgraph.UnmarshalSnapshot(b)
	require.NoError(t, err)
	return snap
}

func classSnapshot() *umlgraph.Snapshot {
	return &umlgraph.Snapshot{
		Name: "orders",
		Type: umlgraph.ClassDiagram,
		Shapes: []umlgraph.ShapeSnapshot{
			{ID: "order", Type: umlgraph.CLASS_TYPE, X: 0, Y: 0, Width: 160, Height: 120, Name: "Order"},
			{ID: "payable", Type: umlgraph.INTERFACE_TYPE, X: 400, Y: 0, Width: 160, Height: 120, Name: "Payable"},
		},
		Edges: []umlgraph.EdgeSnapshot{},
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"version"}, {"--version"}} {
		out, err := runMain(t, args...)
		require.NoError(t, err)
		assert.Equal(t, version.Version+"\n", out)
	}
}

func TestUsageErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		args []string
	}{
		{name: "missing_subcommand"},
		{name: "unknown_subcommand", args: []string{"render"}},
		{name: "place_without_file", args: []string{"place"}},
		{name: "place_negative_width", args: []string{"place", "--width=-1", "x.json"}},
		{name: "replay_both_stdin", args: []string{"replay", "-", "-"}},
		{name: "validate_two_files", args: []string{"validate", "a.json", "b.json"}},
		{name: "sessions_without_subcommand", args: []string{"sessions", "--db", "x.db"}},
		{name: "sessions_bad_type", args: []string{"sessions", "--db", "x.db", "--type", "ERD", "create", "x"}},
		{name: "serve_with_args", args: []string{"serve", "extra"}},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := runMain(t, tc.args...)
			var uerr xmain.UsageError
			assert.True(t, errors.As(err, &uerr), "expected usage error, got %v", err)
		})
	}
}

func TestPlace(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		shapes []umlgraph.ShapeSnapshot
		args   []string
		check  func(t *testing.T, p placement)
	}{
		{
			name: "empty_canvas_uses_center",
			check: func(t *testing.T, p placement) {
				assert.Equal(t, placement{
					X:      umllayout.DefaultScreenW / 2,
					Y:      umllayout.DefaultScreenH / 2,
					Width:  umllayout.DefaultShapeWidth,
					Height: umllayout.DefaultShapeHeight,
				}, p)
			},
		},
		{
			name: "viewport_offset",
			args: []string{"--offset-x=100", "--offset-y=-100", "--width", "40", "--height", "20"},
			check: func(t *testing.T, p placement) {
				assert.Equal(t, placement{X: 300, Y: 400, Width: 40, Height: 20}, p)
			},
		},
		{
			name: "avoids_occupied_center",
			shapes: []umlgraph.ShapeSnapshot{
				{ID: "a", Type: umlgraph.USECASE_TYPE, X: 380, Y: 280, Width: 180, Height: 80, Name: "Checkout"},
			},
			check: func(t *testing.T, p placement) {
				placed := &umlgraph.ShapeSnapshot{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}
				overlaps := placed.X < 380+180 && 380 < placed.X+placed.Width &&
					placed.Y < 280+80 && 280 < placed.Y+placed.Height
				assert.False(t, overlaps, "placed at %+v", p)
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			shapes := tc.shapes
			if shapes == nil {
				shapes = []umlgraph.ShapeSnapshot{}
			}
			fp := writeSnapshot(t, t.TempDir(), "in.json", &umlgraph.Snapshot{
				Type:   umlgraph.UseCaseDiagram,
				Shapes: shapes,
				Edges:  []umlgraph.EdgeSnapshot{},
			})

			args := append([]string{"place"}, tc.args...)
			out, err := runMain(t, append(args, fp)...)
			require.NoError(t, err)

			var p placement
			require.NoError(t, json.Unmarshal([]byte(out), &p))
			tc.check(t, p)
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		edges   []umlgraph.EdgeSnapshot
		expErr  string
		expWarn bool
	}{
		{
			name: "valid",
			edges: []umlgraph.EdgeSnapshot{
				{ID: "r", Type: umlgraph.CLASS_ASSOCIATION_TYPE, SourceID: "payable", TargetID: "order", Kind: umlgraph.Realization},
			},
		},
		{
			name: "realization_from_class_warns",
			edges: []umlgraph.EdgeSnapshot{
				{ID: "r", Type: umlgraph.CLASS_ASSOCIATION_TYPE, SourceID: "order", TargetID: "payable", Kind: umlgraph.Realization},
			},
			expWarn: true,
		},
		{
			name: "dangling_edge",
			edges: []umlgraph.EdgeSnapshot{
				{ID: "e", Type: umlgraph.CLASS_ASSOCIATION_TYPE, SourceID: "order", TargetID: "missing"},
			},
			expErr: `edge "e" could not be revived`,
		},
		{
			name: "duplicate_id",
			edges: []umlgraph.EdgeSnapshot{
				{ID: "order", Type: umlgraph.CLASS_ASSOCIATION_TYPE, SourceID: "order", TargetID: "payable"},
			},
			expErr: `id "order" is used more than once`,
		},
		{
			name: "unknown_edge_type",
			edges: []umlgraph.EdgeSnapshot{
				{ID: "e", Type: "dependency", SourceID: "order", TargetID: "payable"},
			},
			expErr: `edge "e" could not be revived`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			snap := classSnapshot()
			snap.Edges = tc.edges
			fp := writeSnapshot(t, t.TempDir(), "in.json", snap)

			out, err := runMain(t, "validate", "--json", fp)
			if tc.expErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expErr)
			} else {
				require.NoError(t, err)
			}

			var v validation
			require.NoError(t, json.Unmarshal([]byte(out), &v))
			assert.Equal(t, 2, v.Shapes)
			assert.Equal(t, tc.expWarn, len(v.Warnings) > 0, "warnings: %v", v.Warnings)
		})
	}
}

func TestValidateDisallowedShape(t *testing.T) {
	t.Parallel()

	snap := classSnapshot()
	snap.Shapes = append(snap.Shapes, umlgraph.ShapeSnapshot{ID: "bob", Type: umlgraph.ACTOR_TYPE, Width: 60, Height: 120, Name: "Bob"})
	fp := writeSnapshot(t, t.TempDir(), "in.json", snap)

	out, err := runMain(t, "validate", "--json", fp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `shape "bob" could not be revived`)

	var v validation
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, []string{"bob"}, v.DroppedShapes)
}

func TestReplay(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		events []Event
		expX   float64
		expY   float64
	}{
		{
			name: "drag",
			events: []Event{
				{Type: "down", X: 10, Y: 10},
				{Type: "move", X: 60, Y: 40},
				{Type: "move", X: 110, Y: 60},
				{Type: "up", X: 110, Y: 60},
			},
			expX: 100,
			expY: 50,
		},
		{
			name: "drag_then_undo",
			events: []Event{
				{Type: "down", X: 10, Y: 10},
				{Type: "move", X: 110, Y: 60},
				{Type: "up", X: 110, Y: 60},
				{Type: "undo"},
			},
		},
		{
			name: "undo_then_redo",
			events: []Event{
				{Type: "down", X: 10, Y: 10},
				{Type: "move", X: 110, Y: 60},
				{Type: "up", X: 110, Y: 60},
				{Type: "undo"},
				{Type: "redo"},
			},
			expX: 100,
			expY: 50,
		},
		{
			name: "zoomed_drag",
			events: []Event{
				{Type: "wheel", X: 0, Y: 0, DeltaY: -1, Modifier: true},
				{Type: "down", X: 10, Y: 10},
				{Type: "up", X: 10, Y: 10},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			in := writeSnapshot(t, dir, "in.json", classSnapshot())
			b, err := json.Marshal(tc.events)
			require.NoError(t, err)
			events := filepath.Join(dir, "events.json")
			require.NoError(t, os.WriteFile(events, b, 0644))
			out := filepath.Join(dir, "out", "diagram.json")

			_, err = runMain(t, "replay", "-o", out, in, events)
			require.NoError(t, err)

			snap := readSnapshotFile(t, out)
			require.Len(t, snap.Shapes, 2)
			var order *umlgraph.ShapeSnapshot
			for i := range snap.Shapes {
				if snap.Shapes[i].ID == "order" {
					order = &snap.Shapes[i]
				}
			}
			require.NotNil(t, order)
			assert.Equal(t, tc.expX, order.X)
			assert.Equal(t, tc.expY, order.Y)
		})
	}
}

func TestReplayUnknownEvent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := writeSnapshot(t, dir, "in.json", classSnapshot())
	events := filepath.Join(dir, "events.json")
	require.NoError(t, os.WriteFile(events, []byte(`[{"type":"tap"}]`), 0644))

	_, err := runMain(t, "replay", in, events)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown type "tap"`)
}

func TestSessions(t *testing.T) {
	t.Parallel()

	db := filepath.Join(t.TempDir(), "nested", "sessions.db")

	out, err := runMain(t, "sessions", "--db", db, "--json", "--type", "CLASS", "create", "Orders")
	require.NoError(t, err)
	var created sessionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "Orders", created.Name)
	assert.Equal(t, umlgraph.ClassDiagram, created.Type)
	assert.NotEmpty(t, created.ID)

	_, err = runMain(t, "sessions", "--db", db, "create", "Checkout")
	require.NoError(t, err)

	_, err = runMain(t, "sessions", "--db", db, "rename", created.ID, "Billing")
	require.NoError(t, err)

	out, err = runMain(t, "sessions", "--db", db, "--json", "list")
	require.NoError(t, err)
	var infos []sessionInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 2)
	names := map[string]umlgraph.DiagramType{}
	for _, info := range infos {
		names[info.Name] = info.Type
	}
	assert.Equal(t, map[string]umlgraph.DiagramType{
		"Billing":  umlgraph.ClassDiagram,
		"Checkout": umlgraph.UseCaseDiagram,
	}, names)

	out, err = runMain(t, "sessions", "--db", db, "ls")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ID"), out)
	assert.Contains(t, out, "Billing")

	_, err = runMain(t, "sessions", "--db", db, "rm", created.ID)
	require.NoError(t, err)
	_, err = runMain(t, "sessions", "--db", db, "rm", created.ID)
	require.Error(t, err)

	out, err = runMain(t, "sessions", "--db", db, "--json", "list")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "Checkout", infos[0].Name)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	fp := filepath.Join(t.TempDir(), "umlcanvas.yaml")
	require.NoError(t, os.WriteFile(fp, []byte("history:\n  depth: 7\n"), 0644))

	out, err := runMain(t, "--config", fp, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "depth: 7")
	assert.Contains(t, out, "cellSize:")

	_, err = runMain(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "config")
	require.NoError(t, err)
}
