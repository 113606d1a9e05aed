package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	libjpeg "github.com/pixiv/go-libjpeg/jpeg"

	"github.com/menta2k/mockup-crop/internal/errors"
	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/analyzer"
	"github.com/menta2k/mockup-crop/pkg/metadata"
	"github.com/menta2k/mockup-crop/pkg/types"
)

const (
	DefaultTargetSize = 800
	DefaultQuality    = 100
)

// Encoder crops, resizes and writes the fixed-size mockup JPEG
type Encoder struct {
	TargetSize int
	Quality    int
}

// NewEncoder creates an encoder for 800x800 maximum-quality output
func NewEncoder() *Encoder {
	return &Encoder{TargetSize: DefaultTargetSize, Quality: DefaultQuality}
}

// Save writes src cropped to decision.Box into dst. When dst exists and
// overwrite is false nothing is written and a SkipExisting error is returned.
func (e *Encoder) Save(src *analyzer.SourceImage, decision types.CropDecision, dst string, overwrite bool) error {
	if !overwrite && utils.FileExists(dst) {
		return errors.NewSkipExistingError(dst)
	}

	data, err := e.Encode(src, decision)
	if err != nil {
		return errors.NewSaveError(dst, err)
	}

	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return errors.NewSaveError(dst, err)
	}
	return nil
}

// Encode renders the cropped square as baseline 4:4:4 JPEG bytes with the
// source ICC profile and EXIF block re-embedded.
func (e *Encoder) Encode(src *analyzer.SourceImage, decision types.CropDecision) ([]byte, error) {
	rect := decision.Box.Image().Intersect(src.Image.Bounds())
	if rect.Empty() || rect.Dx() != rect.Dy() {
		return nil, fmt.Errorf("invalid crop box %+v for %dx%d image", decision.Box, src.Width, src.Height)
	}

	cropped := imaging.Crop(src.Image, rect)
	resized := imaging.Resize(cropped, e.TargetSize, e.TargetSize, imaging.Lanczos)

	var buf bytes.Buffer
	opts := &libjpeg.EncoderOptions{
		Quality:         e.Quality,
		ProgressiveMode: false,
		OptimizeCoding:  false,
	}
	if err := libjpeg.Encode(&buf, toYCbCr444(resized), opts); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	out, err := metadata.InjectJPEG(buf.Bytes(), src.ICC, src.EXIF)
	if err != nil {
		return nil, fmt.Errorf("failed to embed metadata: %w", err)
	}
	return out, nil
}

// toYCbCr444 converts an opaque image to full-resolution chroma so the
// encoder does not subsample.
func toYCbCr444(img *image.NRGBA) *image.YCbCr {
	b := img.Bounds()
	out := image.NewYCbCr(image.Rect(0, 0, b.Dx(), b.Dy()), image.YCbCrSubsampleRatio444)
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < b.Dx(); x++ {
			p := row[x*4 : x*4+3]
			yy, cb, cr := color.RGBToYCbCr(p[0], p[1], p[2])
			yi := out.YOffset(x, y)
			ci := out.COffset(x, y)
			out.Y[yi] = yy
			out.Cb[ci] = cb
			out.Cr[ci] = cr
		}
	}
	return out
}
