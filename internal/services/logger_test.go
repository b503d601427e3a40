package services

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductionLogger_StructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(&buf, "altrachat", LogLevelInfo, true)

	logger.Info("thread created", "thread_id", "abc")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "thread created", entry["msg"])
	assert.Equal(t, "altrachat", entry["service"])
	assert.Equal(t, "abc", entry["thread_id"])
	assert.Equal(t, "INFO", entry["level"])
}

func TestProductionLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLogger(&buf, "altrachat", LogLevelWarn, false)

	logger.Debug("hidden")
	logger.Info("hidden too")
	assert.Empty(t, buf.String())

	logger.Warn("visible", "k", "v")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "k=v")

	buf.Reset()
	logger.SetLevel(LogLevelDebug)
	logger.Debug("now visible")
	assert.True(t, strings.Contains(buf.String(), "now visible"))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel(" WARN "))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel(""))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("verbose"))
}

func TestNewLogger_TestEnvIsNoOp(t *testing.T) {
	_, ok := NewLogger("altrachat", "test", "").(*NoOpLogger)
	assert.True(t, ok)
}
