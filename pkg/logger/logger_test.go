package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := Default()
	buf := &bytes.Buffer{}
	SetDefault(New(Options{Level: level, Format: "json", Writer: buf}))
	t.Cleanup(func() { SetDefault(prev) })
	return buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestContextFieldsAttached(t *testing.T) {
	buf := captureLogs(t, "info")

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithContext(ctx, UserIDKey, "user-1")
	ctx = WithContext(ctx, TraceIDKey, "trace-1")
	Info(ctx, "story saved", "slug", "the-dragon")

	entry := decodeLine(t, buf)
	assert.Equal(t, "story saved", entry["msg"])
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "trace-1", entry["trace_id"])
	assert.Equal(t, "the-dragon", entry["slug"])

	source, ok := entry["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source["file"], "logger_test.go")
}

func TestErrorAppendsError(t *testing.T) {
	buf := captureLogs(t, "info")

	Error(context.Background(), "persist failed", errors.New("db down"), "stage", "persisted")

	entry := decodeLine(t, buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "db down", entry["error"])
	assert.Equal(t, "persisted", entry["stage"])
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, "warn")

	Debug(context.Background(), "payload")
	Info(context.Background(), "started")
	assert.Zero(t, buf.Len())

	FromContext(context.Background()).Warn("image unavailable")
	assert.Contains(t, buf.String(), "image unavailable")
}
