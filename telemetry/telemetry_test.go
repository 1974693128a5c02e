package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "debug", "json")
	require.NoError(t, err)

	logger.WithPrefix("vault").Debug("flushed", "vault", "abc", "slots", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "flushed", line["msg"])
	assert.Equal(t, "abc", line["vault"])
	assert.Contains(t, line["prefix"], "vault")
}

func TestNewLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "text")
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())
	logger.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewLoggerRejectsBadInput(t *testing.T) {
	_, err := NewLogger(nil, "loud", "text")
	assert.Error(t, err)
	_, err = NewLogger(nil, "info", "xml")
	assert.Error(t, err)
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "guildvault", 1)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
