package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/internal/cli"
	"github.com/stretchr/testify/require"
)

func TestRun_ShouldExit(t *testing.T) {
	// --- Arrange ---
	out := &bytes.Buffer{}

	// --- Act ---
	err := run(out, []string{"-h"})

	// --- Assert ---
	require.NoError(t, err, "help exits cleanly")
	require.Contains(t, out.String(), "Usage:")
}

func TestRun_InvalidFlag(t *testing.T) {
	err := run(&bytes.Buffer{}, []string{"-log-level", "loud"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
}

func TestRun_InvalidConfigFile(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "clock.hcl")
	require.NoError(t, os.WriteFile(path, []byte("fps = 0\n"), 0o600))

	// --- Act ---
	err := run(&bytes.Buffer{}, []string{path})

	// --- Assert ---
	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, 2, exitErr.Code)
	require.Contains(t, exitErr.Message, "fps")
}

func TestRun_MissingFontsStopsBeforeRendering(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	path := filepath.Join(dir, "clock.hcl")
	src := "assets_dir = \"" + filepath.ToSlash(filepath.Join(dir, "assets")) + "\"\n" +
		"display {\n  backend = \"headless\"\n}\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))

	// --- Act ---
	err := run(&bytes.Buffer{}, []string{"-config", path})

	// --- Assert ---
	require.Error(t, err)
	require.Contains(t, err.Error(), "load fonts")
	require.False(t, matrixclock.DefaultFonts.Initialized())
}
