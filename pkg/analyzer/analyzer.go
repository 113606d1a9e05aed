package analyzer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/metadata"
)

// ImageAnalyzer loads source photographs into upright, opaque RGB buffers
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image loader
type Config struct {
	SupportedFormats []string
	MinImageSize     int
}

// SourceImage is a decoded, upright, alpha-free picture plus the metadata
// blobs to re-embed on export
type SourceImage struct {
	Image  *image.NRGBA
	Width  int
	Height int
	ICC    []byte
	// EXIF has its orientation already normalized to 1 when it was readable
	EXIF []byte
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: utils.SupportedExtensions,
			MinImageSize:     1,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// IsSupported reports whether the path carries an allowed extension
func (a *ImageAnalyzer) IsSupported(path string) bool {
	return a.isFormatSupported(utils.GetFileExtension(path))
}

// LoadImage decodes a file, applies its EXIF orientation and flattens any
// transparency onto white.
func (a *ImageAnalyzer) LoadImage(path string) (*SourceImage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	img, err := a.decode(data, path)
	if err != nil {
		return nil, err
	}

	md := metadata.Extract(data)
	exif := md.EXIF
	if exif != nil {
		if normalized, err := metadata.NormalizeOrientation(exif); err == nil {
			exif = normalized
		}
	}

	img = applyOrientation(img, md.Orientation)
	flat := flatten(img)

	src := &SourceImage{
		Image:  flat,
		Width:  flat.Bounds().Dx(),
		Height: flat.Bounds().Dy(),
		ICC:    md.ICC,
		EXIF:   exif,
	}
	if err := a.ValidateImage(src.Image); err != nil {
		return nil, err
	}
	return src, nil
}

func (a *ImageAnalyzer) decode(data []byte, path string) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	if strings.EqualFold(utils.GetFileExtension(path), "webp") {
		if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
			return wimg, nil
		}
	}
	return nil, fmt.Errorf("failed to decode image: %w", err)
}

// applyOrientation maps an EXIF orientation value onto the pixel grid
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.Transpose(img)
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.Transverse(img)
	case 8:
		return imaging.Rotate90(img)
	}
	return img
}

type opaquer interface {
	Opaque() bool
}

// flatten composites translucent images onto an opaque white canvas and
// converts everything else straight to NRGBA with full alpha
func flatten(img image.Image) *image.NRGBA {
	if o, ok := img.(opaquer); ok && o.Opaque() {
		return imaging.Clone(img)
	}
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// GetImageInfo returns basic information about an image
func (a *ImageAnalyzer) GetImageInfo(img image.Image) ImageInfo {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	return ImageInfo{
		Width:       width,
		Height:      height,
		AspectRatio: float64(width) / float64(height),
		Area:        width * height,
	}
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}

// ValidateImage checks if an image meets minimum requirements
func (a *ImageAnalyzer) ValidateImage(img image.Image) error {
	bounds := img.Bounds()
	if bounds.Dx() < a.config.MinImageSize || bounds.Dy() < a.config.MinImageSize {
		return fmt.Errorf("image too small: %dx%d (minimum: %d)",
			bounds.Dx(), bounds.Dy(), a.config.MinImageSize)
	}
	return nil
}
