package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	// --- Arrange ---
	var out bytes.Buffer

	// --- Act ---
	opts, exit, err := Parse(nil, &out)

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, &Options{LogFormat: "text", LogLevel: "info"}, opts)
}

func TestParse_PositionalAndFlags(t *testing.T) {
	opts, exit, err := Parse([]string{"-display", "Terminal", "-log-level", "DEBUG", "-log-format", "json", "-log-file", "clock.log", "clock.hcl"}, new(bytes.Buffer))

	require.NoError(t, err)
	require.False(t, exit)
	require.Equal(t, &Options{ConfigPath: "clock.hcl", Display: "terminal", LogFormat: "json", LogLevel: "debug", LogFile: "clock.log"}, opts)
}

func TestParse_ConfigFlagWins(t *testing.T) {
	opts, _, err := Parse([]string{"-config", "a.hcl", "b.hcl"}, new(bytes.Buffer))

	require.NoError(t, err)
	require.Equal(t, "a.hcl", opts.ConfigPath)
}

func TestParse_Help(t *testing.T) {
	var out bytes.Buffer

	opts, exit, err := Parse([]string{"-h"}, &out)

	require.NoError(t, err)
	require.True(t, exit)
	require.Nil(t, opts)
	require.Contains(t, out.String(), "CONFIG_PATH")
}

func TestParse_Rejections(t *testing.T) {
	testCases := map[string][]string{
		"unknown flag":     {"-nope"},
		"bad log format":   {"-log-format", "xml"},
		"bad log level":    {"-log-level", "trace"},
		"bad display":      {"-display", "hologram"},
		"extra positional": {"a.hcl", "b.hcl"},
	}
	for name, args := range testCases {
		t.Run(name, func(t *testing.T) {
			_, exit, err := Parse(args, new(bytes.Buffer))

			require.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			require.Equal(t, 2, exitErr.Code)
		})
	}
}

func TestNewLogger_FormatAndLevel(t *testing.T) {
	// --- Arrange ---
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	// --- Act ---
	logger.Info("hidden")
	logger.Warn("shown", "module", "clock")

	// --- Assert ---
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "shown", rec["msg"])
	require.Equal(t, "clock", rec["module"])
}
