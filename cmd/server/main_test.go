package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-portfolio-tracker/pkg/config"
)

func TestNewLogger_LevelAndService(t *testing.T) {
	var buf bytes.Buffer
	cfg := &config.Config{Observability: config.ObservabilityConfig{
		ServiceName: "portfolio-api",
		LogLevel:    slog.LevelWarn,
	}}

	logger := newLogger(&buf, cfg)
	logger.Info("dropped")
	logger.Warn("kept")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "kept", record["msg"])
	assert.Equal(t, "portfolio-api", record["service"])
}

func TestReadTimeout(t *testing.T) {
	assert.Equal(t, minUploadWindow, readTimeout(1<<20))
	assert.Equal(t, 40*time.Second, readTimeout(10<<20))
}
