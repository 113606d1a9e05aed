package mockupcrop

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/mockup-crop/pkg/types"
)

// createTestImage creates a simple test image with a bright subject
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{64, 64, 64, 255})
			}
		}
	}

	return img
}

func TestNew(t *testing.T) {
	mc := New()
	require.NotNil(t, mc)
	assert.NotNil(t, mc.analyzer)
	assert.NotNil(t, mc.detector)
	assert.NotNil(t, mc.cropper)
	assert.NotNil(t, mc.processor)
	assert.NotNil(t, mc.scheduler)
}

func TestNewWithOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.TargetSize = 200
	opts.Analyzer.SupportedFormats = []string{"png"}

	dir := t.TempDir()
	src := filepath.Join(dir, "small.png")
	require.NoError(t, imaging.Save(createTestImage(300, 150), src))

	res := NewWithOptions(opts).ProcessOne(src, filepath.Join(dir, "out"), false, false)
	require.Equal(t, types.StatusOK, res.Status, res.Message)

	out, err := imaging.Open(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())
}

func TestAnalyze(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	require.NoError(t, imaging.Save(createTestImage(300, 200), src))

	a, err := New().Analyze(src, false)
	require.NoError(t, err)
	assert.Equal(t, 300, a.Info.Width)
	assert.Equal(t, 200, a.Info.Height)
	assert.Equal(t, 200, a.Decision.Box.Width())
	assert.Equal(t, 200, a.Decision.Box.Height())

	_, err = New().Analyze(filepath.Join(dir, "missing.png"), false)
	assert.Error(t, err)
}

func TestDecide(t *testing.T) {
	d := New().Decide(createTestImage(100, 100), true)
	assert.Equal(t, types.MethodAlreadySquare, d.Method)
}

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(filepath.Join(in, "sub"), 0o755))
	require.NoError(t, imaging.Save(createTestImage(200, 120), filepath.Join(in, "a.png")))
	require.NoError(t, imaging.Save(createTestImage(120, 200), filepath.Join(in, "sub", "b.jpg")))
	require.NoError(t, os.WriteFile(filepath.Join(in, "readme.txt"), []byte("x"), 0o644))

	paths, err := CollectImages(in, true)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	top, err := CollectImages(in, false)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	calls := 0
	results := New().ProcessBatch(paths, filepath.Join(dir, "out"), false, false, 2, func(done, total int, r types.ProcessResult) {
		calls++
		assert.Equal(t, 2, total)
	})
	assert.Equal(t, 2, calls)
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, paths[i], r.InputPath)
		assert.Equal(t, types.StatusOK, r.Status, r.Message)
	}
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.JPG"))
	assert.True(t, IsSupported("b.tiff"))
	assert.False(t, IsSupported("c.gif"))
	assert.False(t, IsSupported("noext"))
}

func TestGetVersion(t *testing.T) {
	assert.Equal(t, Version, GetVersion())
}
