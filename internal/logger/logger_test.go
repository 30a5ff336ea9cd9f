package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestNewLoggerTo_JSONForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn")

	log.Infof("dropped %d", 1)
	log.Warnf("caption %s mismatch", "en")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "caption en mismatch", record["msg"])
}

func TestWithAddsAttributes(t *testing.T) {
	var buf bytes.Buffer
	base := NewLoggerTo(&buf, "info").(*SlogLogger)
	base.With("player", "p1").Infof("hello")

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &record))
	assert.Equal(t, "p1", record["player"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	l := Nop()
	assert.Equal(t, l, OrNop(l))
}
