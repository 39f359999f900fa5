package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labelseg/pkg/config"
)

func writeSlice(t *testing.T, path string) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 5, 5))
	img.SetGray(1, 1, color.Gray{Y: 255})
	img.SetGray(2, 2, color.Gray{Y: 255})
	img.SetGray(4, 4, color.Gray{Y: 255})

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLabelCommand(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(input, 0755))
	writeSlice(t, filepath.Join(input, "slice_1.png"))

	outDir := filepath.Join(dir, "out")
	out, err := execute(t, "label", input,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--output", outDir,
		"--save",
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "slice_1.png")
	assert.FileExists(t, filepath.Join(outDir, "label", "slice_1.png"))
}

func TestLabelCommandConnectivityFlag(t *testing.T) {
	dir := t.TempDir()
	writeSlice(t, filepath.Join(dir, "slice_1.png"))

	_, err := execute(t, "label", dir,
		"--config", filepath.Join(dir, "missing.yaml"),
		"--connectivity", "6",
		"--log-level", "error",
	)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestConfigInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labelseg.yaml")

	out, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Watershed.Variant, cfg.Watershed.Variant)

	_, err = execute(t, "config", "init", path)
	assert.Error(t, err, "refuses to overwrite")
}
