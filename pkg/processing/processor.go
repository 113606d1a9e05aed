package processing

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/menta2k/mockup-crop/internal/errors"
	"github.com/menta2k/mockup-crop/internal/logging"
	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/analyzer"
	"github.com/menta2k/mockup-crop/pkg/cropper"
	"github.com/menta2k/mockup-crop/pkg/types"
)

// DefaultSuffix is appended to the input stem to name the output file
const DefaultSuffix = "_800"

// Options controls a single ProcessFile call
type Options struct {
	OutputDir string
	Overwrite bool
	SafeMode  bool
	Suffix    string
	// DebugDir, when set, receives a PNG overlay of the chosen crop box
	DebugDir string
}

// Processor runs the load, crop and encode pipeline for one file
type Processor struct {
	loader  *analyzer.ImageAnalyzer
	cropper *cropper.SmartCropper
	encoder *Encoder
}

// NewProcessor creates a new image processor with default stages
func NewProcessor() *Processor {
	return &Processor{
		loader:  analyzer.New(),
		cropper: cropper.New(),
		encoder: NewEncoder(),
	}
}

// NewProcessorWith assembles a processor from explicit stages
func NewProcessorWith(loader *analyzer.ImageAnalyzer, c *cropper.SmartCropper, enc *Encoder) *Processor {
	return &Processor{loader: loader, cropper: c, encoder: enc}
}

// OutputPath returns where ProcessFile writes the export for path
func OutputPath(path, outputDir, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return utils.GenerateOutputFilename(path, outputDir, suffix)
}

// ProcessOne is ProcessFile with the default suffix and no debug output
func (p *Processor) ProcessOne(path, outputDir string, overwrite, safeMode bool) types.ProcessResult {
	return p.ProcessFile(path, Options{OutputDir: outputDir, Overwrite: overwrite, SafeMode: safeMode})
}

// ProcessFile never fails: every problem is folded into the returned
// result's status and message.
func (p *Processor) ProcessFile(path string, opts Options) (result types.ProcessResult) {
	dst := OutputPath(path, opts.OutputDir, opts.Suffix)
	result = types.ProcessResult{
		InputPath:  path,
		OutputPath: dst,
		CropMethod: types.MethodFallbackCenter,
	}

	defer func() {
		if r := recover(); r != nil {
			err := errors.NewUnexpectedError(path, fmt.Errorf("%v", r))
			result.Status = types.StatusError
			result.Message = err.Error()
		}
	}()

	if err := utils.EnsureDir(opts.OutputDir); err != nil {
		return failed(result, errors.NewSaveError(dst, err))
	}

	if !p.loader.IsSupported(path) {
		return failed(result, errors.NewUnsupportedFormatError(path, utils.GetFileExtension(path)))
	}

	if !opts.Overwrite && utils.FileExists(dst) {
		return failed(result, errors.NewSkipExistingError(dst))
	}

	src, err := p.loader.LoadImage(path)
	if err != nil {
		return failed(result, errors.NewLoadError(path, err))
	}

	decision := p.cropper.Decide(src.Image, opts.SafeMode)
	result.CropMethod = decision.Method
	logging.Debugf("%s: %dx%d -> %+v (%s)", filepath.Base(path), src.Width, src.Height, decision.Box, decision.Method)

	if err := p.encoder.Save(src, decision, dst, opts.Overwrite); err != nil {
		return failed(result, err)
	}

	if opts.DebugDir != "" {
		if err := p.saveDebugOverlay(src.Image, decision, path, opts.DebugDir); err != nil {
			logging.Printf("debug overlay for %s failed: %v", path, err)
		}
	}

	result.Status = types.StatusOK
	result.Message = fmt.Sprintf("exported with %s", decision.Method)
	return result
}

func failed(result types.ProcessResult, err error) types.ProcessResult {
	if errors.IsSkip(err) {
		result.Status = types.StatusSkipped
	} else {
		result.Status = types.StatusError
	}
	result.Message = err.Error()
	return result
}

func (p *Processor) saveDebugOverlay(img image.Image, decision types.CropDecision, path, dir string) error {
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}
	overlay := CreateDebugOverlay(img, decision.Box)
	return imaging.Save(overlay, filepath.Join(dir, utils.FileStem(path)+"_debug.png"))
}

// CreateDebugOverlay draws the crop box and both the crop and image centers
// on a copy of img
func CreateDebugOverlay(img image.Image, box types.Rect) image.Image {
	nrgba := imaging.Clone(img)
	w := nrgba.Bounds().Dx()
	h := nrgba.Bounds().Dy()

	gold := color.NRGBA{255, 204, 0, 255} // crop box
	red := color.NRGBA{255, 0, 0, 255}    // crop center
	blue := color.NRGBA{0, 170, 255, 255} // image center
	stroke := int(math.Max(2, 0.004*float64(min(w, h))))
	cross := int(math.Max(4, 0.01*float64(min(w, h))))

	drawBox(nrgba, box, gold, stroke)

	cx, cy := box.Center()
	px, py := int(cx), int(cy)
	drawHLine(nrgba, py, px-cross, px+cross, red)
	drawVLine(nrgba, px, py-cross, py+cross, red)

	ix, iy := w/2, h/2
	drawHLine(nrgba, iy, ix-6, ix+6, blue)
	drawVLine(nrgba, ix, iy-6, iy+6, blue)

	return nrgba
}

func drawBox(img *image.NRGBA, box types.Rect, c color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, box.Y0+s, box.X0, box.X1, c)
		drawHLine(img, box.Y1-1-s, box.X0, box.X1, c)
		drawVLine(img, box.X0+s, box.Y0, box.Y1, c)
		drawVLine(img, box.X1-1-s, box.Y0, box.Y1, c)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	b := img.Bounds()
	if y < 0 || y >= b.Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(0, x0), min(b.Dx(), x1)
	for x := x0; x < x1; x++ {
		img.SetNRGBA(x, y, c)
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	b := img.Bounds()
	if x < 0 || x >= b.Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(0, y0), min(b.Dy(), y1)
	for y := y0; y < y1; y++ {
		img.SetNRGBA(x, y, c)
	}
}
