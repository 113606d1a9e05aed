package cropper

import (
	"fmt"
	"image"
	"math"
	"slices"

	"github.com/menta2k/mockup-crop/internal/logging"
	"github.com/menta2k/mockup-crop/pkg/types"
	"github.com/menta2k/mockup-crop/pkg/vision"
)

// SmartCropper picks the square crop that best preserves salient content
type SmartCropper struct {
	detector *vision.SubjectDetector
	config   CropConfig
}

// Weights balances the candidate score components. They are relative and
// need not sum to one.
type Weights struct {
	Energy  float64
	Overlap float64
	Focus   float64
	Center  float64
}

// CropConfig holds configuration for smart cropping
type CropConfig struct {
	Normal Weights
	Safe   Weights
	// SafeBlend pulls the focus center toward the image center in safe mode
	SafeBlend float64
}

// DefaultConfig returns the tuned scoring profiles
func DefaultConfig() CropConfig {
	return CropConfig{
		Normal:    Weights{Energy: 0.75, Overlap: 0.40, Focus: 0.40, Center: 0.15},
		Safe:      Weights{Energy: 0.55, Overlap: 0.55, Focus: 0.45, Center: 0.35},
		SafeBlend: 0.50,
	}
}

// New creates a new SmartCropper with default configuration
func New() *SmartCropper {
	return &SmartCropper{
		detector: vision.New(),
		config:   DefaultConfig(),
	}
}

// NewWithConfig creates a new SmartCropper with custom configuration
func NewWithConfig(config CropConfig) *SmartCropper {
	return &SmartCropper{
		detector: vision.New(),
		config:   config,
	}
}

// SetDetector allows setting a custom subject detector
func (c *SmartCropper) SetDetector(detector *vision.SubjectDetector) {
	c.detector = detector
}

// CenterSquare returns the centered square of side min(width, height)
func CenterSquare(width, height int) types.Rect {
	side := min(width, height)
	left := (width - side) / 2
	top := (height - side) / 2
	return types.Rect{X0: left, Y0: top, X1: left + side, Y1: top + side}
}

// Decide walks the crop ladder for img: already_square, smart_centered,
// fallback_center, smart_saliency. The first matching rung wins and the
// returned box always lies inside the image.
func (c *SmartCropper) Decide(img image.Image, safeMode bool) types.CropDecision {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()

	if width == height {
		return types.CropDecision{
			Box:    types.Rect{X0: 0, Y0: 0, X1: width, Y1: height},
			Method: types.MethodAlreadySquare,
		}
	}

	work := c.detector.WorkingCopy(img)
	sw, sh := work.Bounds().Dx(), work.Bounds().Dy()
	if sw == sh {
		return types.CropDecision{Box: CenterSquare(width, height), Method: types.MethodSmartCentered}
	}

	energy := c.detector.BuildEnergyMap(work)
	if energy.Degenerate() {
		return fallback(width, height)
	}

	region := c.detector.DetectSalientRegion(energy)
	box, err := c.searchSaliency(energy, region, width, height, safeMode)
	if err != nil {
		logging.Debugf("saliency search failed, using center crop: %v", err)
		return fallback(width, height)
	}
	return types.CropDecision{Box: box, Method: types.MethodSmartSaliency}
}

func fallback(width, height int) types.CropDecision {
	return types.CropDecision{Box: CenterSquare(width, height), Method: types.MethodFallbackCenter}
}

// searchSaliency scores every square offset along the working copy's long
// axis and maps the winner back to original resolution. Failures, including
// runtime panics from malformed maps, surface as an error.
func (c *SmartCropper) searchSaliency(energy *vision.EnergyMap, region *types.Rect, width, height int, safeMode bool) (box types.Rect, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("saliency search panicked: %v", r)
		}
	}()

	sw, sh := energy.Width, energy.Height
	side := min(sw, sh)
	if side <= 0 {
		return types.Rect{}, fmt.Errorf("invalid working size %dx%d", sw, sh)
	}

	cx, cy := float64(sw)/2.0, float64(sh)/2.0
	fx, fy := cx, cy
	if region != nil {
		fx, fy = region.Center()
	}

	weights := c.config.Normal
	if safeMode {
		blend := c.config.SafeBlend
		fx = fx*(1.0-blend) + cx*blend
		fy = fy*(1.0-blend) + cy*blend
		weights = c.config.Safe
	}

	s := &candidateScorer{
		width:    sw,
		height:   sh,
		side:     side,
		integral: NewIntegralImage(energy),
		region:   region,
		focusX:   fx,
		focusY:   fy,
		weights:  weights,
	}

	horizontal := sw > sh
	movable := sh - side
	focus := fy
	if horizontal {
		movable = sw - side
		focus = fx
	}
	target := int(math.RoundToEven(focus - float64(side)/2.0))

	bestScore := math.Inf(-1)
	bestOffset := movable / 2
	for _, offset := range candidateOffsets(movable, target) {
		x, y := 0, offset
		if horizontal {
			x, y = offset, 0
		}
		score := s.score(x, y)
		if math.IsNaN(score) {
			return types.Rect{}, fmt.Errorf("non-finite score at offset %d", offset)
		}
		if score > bestScore {
			bestScore = score
			bestOffset = offset
		}
	}

	if horizontal {
		left := int(math.RoundToEven(float64(bestOffset) * (float64(width) / float64(max(1, sw)))))
		left = max(0, min(left, width-height))
		box = types.Rect{X0: left, Y0: 0, X1: left + height, Y1: height}
	} else {
		top := int(math.RoundToEven(float64(bestOffset) * (float64(height) / float64(max(1, sh)))))
		top = max(0, min(top, height-width))
		box = types.Rect{X0: 0, Y0: top, X1: width, Y1: top + width}
	}

	if !insideSquare(box, width, height) {
		return types.Rect{}, fmt.Errorf("crop box %+v outside %dx%d", box, width, height)
	}
	return box, nil
}

// candidateOffsets lists every integer offset in [0, movable] in ascending
// order, plus the clamped focus-aligned target when it is not already there
func candidateOffsets(movable, target int) []int {
	offsets := make([]int, 0, movable+2)
	for o := 0; o <= movable; o++ {
		offsets = append(offsets, o)
	}
	target = max(0, min(movable, target))
	if !slices.Contains(offsets, target) {
		offsets = append(offsets, target)
	}
	return offsets
}

func insideSquare(r types.Rect, width, height int) bool {
	side := min(width, height)
	return r.X0 >= 0 && r.Y0 >= 0 && r.X1 <= width && r.Y1 <= height &&
		r.Width() == side && r.Height() == side
}

type candidateScorer struct {
	width, height  int
	side           int
	integral       *IntegralImage
	region         *types.Rect
	focusX, focusY float64
	weights        Weights
}

func (s *candidateScorer) score(x, y int) float64 {
	energyScore := s.integral.Mean(x, y, s.side)
	overlapScore := overlapRatio(types.Rect{X0: x, Y0: y, X1: x + s.side, Y1: y + s.side}, s.region)

	cropX := float64(x) + float64(s.side)/2.0
	cropY := float64(y) + float64(s.side)/2.0
	focusScore := s.proximity(cropX, cropY, s.focusX, s.focusY)
	centerScore := s.proximity(cropX, cropY, float64(s.width)/2.0, float64(s.height)/2.0)

	w := s.weights
	return energyScore*w.Energy + overlapScore*w.Overlap + focusScore*w.Focus + centerScore*w.Center
}

// proximity is 1 at the target and falls linearly to 0 at half the
// normalized image diagonal
func (s *candidateScorer) proximity(x, y, tx, ty float64) float64 {
	dx := (x - tx) / max(1.0, float64(s.width))
	dy := (y - ty) / max(1.0, float64(s.height))
	return 1.0 - math.Min(1.0, math.Hypot(dx, dy)*2.0)
}

// overlapRatio is the fraction of region's area covered by crop
func overlapRatio(crop types.Rect, region *types.Rect) float64 {
	if region == nil {
		return 0
	}
	inter := types.Rect{
		X0: max(crop.X0, region.X0),
		Y0: max(crop.Y0, region.Y0),
		X1: min(crop.X1, region.X1),
		Y1: min(crop.Y1, region.Y1),
	}
	area := inter.Area()
	if area == 0 {
		return 0
	}
	return float64(area) / float64(max(1, region.Area()))
}
