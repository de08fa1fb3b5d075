package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNewFanout(t *testing.T) {
	var console, file bytes.Buffer
	logger := NewFanout(slog.NewTextHandler(&console, nil), &file, slog.LevelInfo)

	logger.Info("job stored", "job_id", "abc")
	logger.Debug("hidden")

	assert.Contains(t, console.String(), "job_id=abc")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(file.Bytes()), &rec))
	assert.Equal(t, "job stored", rec["msg"])
	assert.Equal(t, "abc", rec["job_id"])
	assert.NotContains(t, file.String(), "hidden")
}

func TestBuildWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	var stderr bytes.Buffer

	logger, cleanup := build(&stderr, Options{Level: "debug", File: path})
	logger.Debug("written to both")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to both"`)
	assert.Contains(t, stderr.String(), "written to both")
}

func TestBuildUnwritableFileFallsBack(t *testing.T) {
	var stderr bytes.Buffer
	logger, cleanup := build(&stderr, Options{File: filepath.Join(t.TempDir(), "missing", "app.log")})
	require.NoError(t, cleanup())

	logger.Info("still logging")
	assert.True(t, strings.Contains(stderr.String(), "failed to open log file"))
	assert.Contains(t, stderr.String(), "still logging")
}

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
