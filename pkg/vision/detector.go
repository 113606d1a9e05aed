package vision

import (
	"math"
	"slices"

	"github.com/menta2k/mockup-crop/pkg/types"
)

// SubjectDetector builds energy maps and locates the salient region in them
type SubjectDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for energy and saliency analysis
type DetectionConfig struct {
	WorkingMaxSide int
	MinWorkingSide int
	BlurSigma      float64
	GradientWeight float64
	ContrastWeight float64
	// Percentile of energy values that seeds the saliency mask, 0..100
	Percentile    float64
	MinMaskPixels int
	MinMaskRatio  float64
	PaddingRatio  float64
	MinPadding    int
}

// DefaultConfig returns the tuned detection parameters
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		WorkingMaxSide: 512,
		MinWorkingSide: 64,
		BlurSigma:      2.0,
		GradientWeight: 0.75,
		ContrastWeight: 0.25,
		Percentile:     88.0,
		MinMaskPixels:  16,
		MinMaskRatio:   0.002,
		PaddingRatio:   0.08,
		MinPadding:     2,
	}
}

// New creates a new SubjectDetector with default configuration
func New() *SubjectDetector {
	return &SubjectDetector{config: DefaultConfig()}
}

// NewWithConfig creates a new SubjectDetector with custom configuration
func NewWithConfig(config DetectionConfig) *SubjectDetector {
	return &SubjectDetector{config: config}
}

// Config returns the detector configuration
func (d *SubjectDetector) Config() DetectionConfig {
	return d.config
}

// DetectSalientRegion thresholds the map at the configured percentile and
// returns the padded bounding box of the masked cells, or nil when too few
// cells pass.
func (d *SubjectDetector) DetectSalientRegion(m *EnergyMap) *types.Rect {
	n := len(m.Values)
	if n == 0 {
		return nil
	}
	threshold := Percentile(m.Values, d.config.Percentile)

	x0, y0 := m.Width, m.Height
	x1, y1 := -1, -1
	count := 0
	for y := 0; y < m.Height; y++ {
		row := m.Values[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if v < threshold {
				continue
			}
			count++
			x0 = min(x0, x)
			y0 = min(y0, y)
			x1 = max(x1, x)
			y1 = max(y1, y)
		}
	}

	minCount := max(d.config.MinMaskPixels, int(float64(n)*d.config.MinMaskRatio))
	if count < minCount {
		return nil
	}

	// exclusive max edges
	x1++
	y1++
	padX := max(d.config.MinPadding, int(float64(x1-x0)*d.config.PaddingRatio))
	padY := max(d.config.MinPadding, int(float64(y1-y0)*d.config.PaddingRatio))

	return &types.Rect{
		X0: max(0, x0-padX),
		Y0: max(0, y0-padY),
		X1: min(m.Width, x1+padX),
		Y1: min(m.Height, y1+padY),
	}
}

// Percentile returns the p-th percentile of values using linear
// interpolation between the closest ranks
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	rank := p / 100.0 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
