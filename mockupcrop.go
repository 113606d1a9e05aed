// Package mockupcrop turns product photographs into fixed-size square mockups.
//
// Every image is loaded upright and opaque, a square crop is chosen along its
// long axis from a gradient and local-contrast energy map, and the crop is
// resized to 800x800 and written as a maximum-quality 4:4:4 JPEG that keeps
// the source color profile and EXIF block.
//
// Basic usage:
//
//	mc := mockupcrop.New()
//
//	// one file
//	res := mc.ProcessOne("photo.png", "out", false, false)
//	fmt.Println(res.Status, res.Message)
//
//	// a whole folder, three workers
//	paths, _ := mockupcrop.CollectImages("in", true)
//	results := mc.ProcessBatch(paths, "out", false, false, 3, func(done, total int, r types.ProcessResult) {
//		fmt.Printf("[%d/%d] %s\n", done, total, r.Status)
//	})
//
// The crop decision is a four-step ladder: already square images are kept
// whole, images whose working copy is square are center cropped, images
// without any energy fall back to a center crop, and everything else gets a
// saliency-driven crop.
package mockupcrop

import (
	"image"

	"github.com/menta2k/mockup-crop/internal/utils"
	"github.com/menta2k/mockup-crop/pkg/analyzer"
	"github.com/menta2k/mockup-crop/pkg/batch"
	"github.com/menta2k/mockup-crop/pkg/cropper"
	"github.com/menta2k/mockup-crop/pkg/processing"
	"github.com/menta2k/mockup-crop/pkg/types"
	"github.com/menta2k/mockup-crop/pkg/vision"
)

// Version of the mockup crop library
const Version = "1.0.0"

// Options assembles the tunables of every stage
type Options struct {
	Analyzer   analyzer.Config
	Vision     vision.DetectionConfig
	Cropper    cropper.CropConfig
	TargetSize int
	Quality    int
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		Analyzer: analyzer.Config{
			SupportedFormats: utils.SupportedExtensions,
			MinImageSize:     1,
		},
		Vision:     vision.DefaultConfig(),
		Cropper:    cropper.DefaultConfig(),
		TargetSize: processing.DefaultTargetSize,
		Quality:    processing.DefaultQuality,
	}
}

// MockupCropper provides a high-level interface over the pipeline
type MockupCropper struct {
	analyzer  *analyzer.ImageAnalyzer
	detector  *vision.SubjectDetector
	cropper   *cropper.SmartCropper
	processor *processing.Processor
	scheduler *batch.Scheduler
}

// New creates a MockupCropper with default configuration
func New() *MockupCropper {
	return NewWithOptions(DefaultOptions())
}

// NewWithOptions creates a MockupCropper with custom configuration
func NewWithOptions(opts Options) *MockupCropper {
	loader := analyzer.NewWithConfig(opts.Analyzer)
	detector := vision.NewWithConfig(opts.Vision)
	smartCropper := cropper.NewWithConfig(opts.Cropper)
	smartCropper.SetDetector(detector)

	enc := processing.NewEncoder()
	if opts.TargetSize > 0 {
		enc.TargetSize = opts.TargetSize
	}
	if opts.Quality > 0 {
		enc.Quality = opts.Quality
	}

	processor := processing.NewProcessorWith(loader, smartCropper, enc)
	return &MockupCropper{
		analyzer:  loader,
		detector:  detector,
		cropper:   smartCropper,
		processor: processor,
		scheduler: batch.NewWithProcessor(processor),
	}
}

// Analysis describes the crop a file would receive
type Analysis struct {
	Info     analyzer.ImageInfo `json:"info"`
	Decision types.CropDecision `json:"decision"`
}

// LoadImage loads an upright, opaque image with its metadata
func (mc *MockupCropper) LoadImage(path string) (*analyzer.SourceImage, error) {
	return mc.analyzer.LoadImage(path)
}

// Decide picks the square crop for an already loaded image
func (mc *MockupCropper) Decide(img image.Image, safeMode bool) types.CropDecision {
	return mc.cropper.Decide(img, safeMode)
}

// Analyze loads path and reports its crop decision without writing output
func (mc *MockupCropper) Analyze(path string, safeMode bool) (Analysis, error) {
	src, err := mc.analyzer.LoadImage(path)
	if err != nil {
		return Analysis{}, err
	}
	return Analysis{
		Info:     mc.analyzer.GetImageInfo(src.Image),
		Decision: mc.cropper.Decide(src.Image, safeMode),
	}, nil
}

// ProcessOne exports a single file. It never fails; problems are reported
// through the result's status.
func (mc *MockupCropper) ProcessOne(path, outputDir string, overwrite, safeMode bool) types.ProcessResult {
	return mc.processor.ProcessOne(path, outputDir, overwrite, safeMode)
}

// ProcessFile exports a single file with full per-file options
func (mc *MockupCropper) ProcessFile(path string, opts processing.Options) types.ProcessResult {
	return mc.processor.ProcessFile(path, opts)
}

// ProcessBatch exports paths with a bounded worker pool. Results are in
// input order; progress is called in completion order.
func (mc *MockupCropper) ProcessBatch(paths []string, outputDir string, overwrite, safeMode bool, workers int, progress types.ProgressFunc) []types.ProcessResult {
	return mc.scheduler.ProcessBatch(paths, batch.Options{
		OutputDir: outputDir,
		Overwrite: overwrite,
		SafeMode:  safeMode,
		Workers:   workers,
	}, progress)
}

// Scheduler exposes the batch scheduler for callers that need the relay API
func (mc *MockupCropper) Scheduler() *batch.Scheduler {
	return mc.scheduler
}

// IsSupported reports whether path has an accepted image extension
func IsSupported(path string) bool {
	return utils.IsImageFile(path)
}

// CollectImages lists supported images under dir, sorted by path
func CollectImages(dir string, recursive bool) ([]string, error) {
	return utils.ListImageFiles(dir, recursive)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
