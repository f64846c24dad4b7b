package tui

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	// A buffer has no color support, so the art is written verbatim.
	assert.Contains(t, buf.String(), bannerLines[0].text)
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render("**Reset** your password")
	require.NoError(t, err)
	assert.Contains(t, out, "Reset")
	assert.Contains(t, out, "password")
}

func TestIsInteractive(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsInteractive(f))
}
