package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected LogLevel
	}{
		{name: "Debug", value: "debug", expected: LevelDebug},
		{name: "Info", value: "info", expected: LevelInfo},
		{name: "Warn", value: "warn", expected: LevelWarn},
		{name: "Error", value: "error", expected: LevelError},
		{name: "Case insensitive", value: "DEBUG", expected: LevelDebug},
		{name: "Warning alias", value: "warning", expected: LevelWarn},
		{name: "Empty falls back to info", value: "", expected: LevelInfo},
		{name: "Unknown falls back to info", value: "verbose", expected: LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.value))
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		assert.Less(t, levels[i], levels[i+1], "log levels should be in ascending order")
	}
}

func TestConfigureFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelWarn, &buf)
	t.Cleanup(func() { Configure(LevelInfo, nil) })

	Debug("debug %d", 1)
	Info("info %d", 2)
	Warn("warn %d", 3)
	Error("error %d", 4)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "warn", first["level"])
	assert.Equal(t, "warn 3", first["message"])

	assert.Equal(t, LevelWarn, GetLevel())
	assert.False(t, IsDebugEnabled())
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	Configure(LevelDebug, &buf)
	t.Cleanup(func() { Configure(LevelInfo, nil) })

	L().Info().Str("path", "/assets/app.css").Int("status", 200).Msg("request")

	var event map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &event))
	assert.Equal(t, "/assets/app.css", event["path"])
	assert.EqualValues(t, 200, event["status"])
	assert.True(t, IsDebugEnabled())
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}
