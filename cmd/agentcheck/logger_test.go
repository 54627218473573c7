package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/agentcheck/config"
)

func TestNewLogger_TextToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog := newLogger(&buf, config.Default().Log)
	defer func() { _ = closeLog() }()

	logger.Info("hello", "key", "value")
	logger.Debug("hidden")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "key=value")
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNewLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog := newLogger(&buf, config.LogConfig{Level: "debug", Format: "json"})
	defer func() { _ = closeLog() }()

	logger.Debug("visible")

	assert.Contains(t, buf.String(), `"msg":"visible"`)
}

func TestNewLogger_TeesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "agentcheck.log")

	var buf bytes.Buffer
	logger, closeLog := newLogger(&buf, config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})

	logger.Info("written twice")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written twice")
	assert.Contains(t, buf.String(), "written twice")
}
