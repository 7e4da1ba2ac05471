package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestColorTextHandlerEnabled(t *testing.T) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	h := NewColorTextHandler(new(bytes.Buffer), &slog.HandlerOptions{Level: levelVar}, false)

	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelWarn))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestColorTextHandlerEnabledDefaultsToInfo(t *testing.T) {
	h := NewColorTextHandler(new(bytes.Buffer), nil, false)
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
}

func TestColorTextHandlerHandleWritesPlainText(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, false)

	r := slog.NewRecord(time.Now(), slog.LevelInfo, "table committed", 0)
	r.AddAttrs(slog.Int("table_id", 7))

	require := assert.New(t)
	require.NoError(h.Handle(context.Background(), r))

	out := buf.String()
	require.Contains(out, "[INFO]")
	require.Contains(out, "table committed")
	require.Contains(out, "table_id=7")
	require.NotContains(out, "\033[")
}

func TestColorTextHandlerHandleWritesColor(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, true)

	r := slog.NewRecord(time.Now(), slog.LevelError, "write failed", 0)
	assert.NoError(t, h.Handle(context.Background(), r))
	assert.Contains(t, buf.String(), "\033[")
}

func TestColorTextHandlerWithAttrsCarriesForward(t *testing.T) {
	buf := new(bytes.Buffer)
	h := NewColorTextHandler(buf, nil, false)

	h2 := h.WithAttrs([]slog.Attr{slog.String("device_id", "1")})
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "msg", 0)
	assert.NoError(t, h2.Handle(context.Background(), r))
	assert.Contains(t, buf.String(), "device_id=1")
}

func TestColorTextHandlerWithGroupNoOpWhenEmpty(t *testing.T) {
	h := NewColorTextHandler(new(bytes.Buffer), nil, false)
	assert.Same(t, h, h.WithGroup(""))
}

func TestColorTextHandlerWithGroupReturnsDistinctHandler(t *testing.T) {
	h := NewColorTextHandler(new(bytes.Buffer), nil, false)
	h2 := h.WithGroup("pipeline")
	assert.NotSame(t, h, h2)
}

func TestFormatValueKinds(t *testing.T) {
	assert.Equal(t, "hello", formatValue(slog.StringValue("hello")))
	assert.Equal(t, "42", formatValue(slog.IntValue(42)))
	assert.Equal(t, "true", formatValue(slog.BoolValue(true)))
}
