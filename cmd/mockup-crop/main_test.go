package main

import (
	"bytes"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImage(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	img := imaging.New(w, h, color.NRGBA{210, 210, 210, 255})
	for y := h / 4; y < 3*h/4; y++ {
		for x := w / 3; x < 2*w/3; x++ {
			img.SetNRGBA(x, y, color.NRGBA{40, 60, 200, 255})
		}
	}
	require.NoError(t, imaging.Save(img, path))
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(nil, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "usage")

	assert.Equal(t, exitUsage, run([]string{"-no-such-flag"}, &stdout, &stderr))
}

func TestRunMissingInputDir(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run([]string{"-input-dir", filepath.Join(dir, "nope"), "-output-dir", filepath.Join(dir, "out")}, &stdout, &stderr)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr.String(), "does not exist")
}

func TestRunNoImages(t *testing.T) {
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run([]string{"-input-dir", dir, "-output-dir", filepath.Join(dir, "out")}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout.String(), "no supported images")
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeImage(t, filepath.Join(in, "a.png"), 240, 160)
	writeImage(t, filepath.Join(in, "nested", "b.png"), 160, 240)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-input-dir", in, "-output-dir", out, "-workers", "20"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	assert.FileExists(t, filepath.Join(out, "a_800.jpg"))
	assert.FileExists(t, filepath.Join(out, "b_800.jpg"))
	assert.Contains(t, stdout.String(), "[SUMMARY] OK=2 | Skipped=0 | Errors=0 | Total=2")
	assert.Contains(t, stdout.String(), "-> ok: exported with")

	// second run skips both
	stdout.Reset()
	code = run([]string{"-input-dir", in, "-output-dir", out}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "OK=0 | Skipped=2 | Errors=0 | Total=2")
}

func TestRunNonRecursive(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeImage(t, filepath.Join(in, "a.png"), 240, 160)
	writeImage(t, filepath.Join(in, "nested", "b.png"), 160, 240)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-input-dir", in, "-output-dir", filepath.Join(dir, "out"), "-non-recursive"}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "Total=1")
}

func TestRunWritesErrorLog(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeImage(t, filepath.Join(in, "good.png"), 240, 160)
	require.NoError(t, os.WriteFile(filepath.Join(in, "bad.jpg"), []byte("garbage"), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-input-dir", in, "-output-dir", out}, &stdout, &stderr)
	assert.Equal(t, exitFailure, code)
	assert.Contains(t, stdout.String(), "Errors=1")

	logs, err := filepath.Glob(filepath.Join(out, "mockup_errors_cli_*.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)

	data, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "archivo,error", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], filepath.Join(in, "bad.jpg")+","))
}

func TestRunDryRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeImage(t, filepath.Join(in, "a.png"), 300, 200)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-input-dir", in, "-output-dir", out, "-dry-run"}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	var entries []map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0], "decision")
	assert.NoFileExists(t, filepath.Join(out, "a_800.jpg"))
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeImage(t, filepath.Join(in, "a.png"), 240, 160)

	cfgPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`{"processing": {"target_size": 100}, "output": {"dir": "`+filepath.ToSlash(out)+`", "suffix": "_sq"}}`), 0o644))

	var stdout, stderr bytes.Buffer
	code := run([]string{"-input-dir", in, "-config", cfgPath}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	img, err := imaging.Open(filepath.Join(out, "a_sq.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}
