package log

import (
	"bytes"
	"context"
	"testing"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/stretchr/testify/assert"
)

func TestWithFields(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	ctx := With(context.Background(), slog.Make(sloghuman.Sink(&b)))
	ctx = WithFields(ctx, slog.F("session", "s-1"))

	Info(ctx, "synced")
	Debug(ctx, "hidden")
	assert.Contains(t, b.String(), "synced")
	assert.Contains(t, b.String(), "s-1")
	assert.NotContains(t, b.String(), "hidden")

	b.Reset()
	Debug(Leveled(ctx, slog.LevelDebug), "shown")
	assert.Contains(t, b.String(), "shown")
	assert.Contains(t, b.String(), "s-1")
}
