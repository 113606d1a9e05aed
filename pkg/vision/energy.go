package vision

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// degenerateEpsilon is the peak energy below which a map carries no signal
const degenerateEpsilon = 1e-8

// EnergyMap is a row-major grid of visual-importance values in [0,1]
type EnergyMap struct {
	Width  int
	Height int
	Values []float64
	// Peak is the maximum value after the min-shift and before scaling
	Peak float64
}

// At returns the energy at (x, y)
func (m *EnergyMap) At(x, y int) float64 {
	return m.Values[y*m.Width+x]
}

// Max returns the largest value in the map
func (m *EnergyMap) Max() float64 {
	peak := 0.0
	for _, v := range m.Values {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Degenerate reports whether the map is flat (no gradients, no contrast)
func (m *EnergyMap) Degenerate() bool {
	return m.Max() < degenerateEpsilon
}

// WorkingCopy returns img scaled so its longer side equals WorkingMaxSide
// (bilinear, each axis at least MinWorkingSide), or img itself when it is
// already small enough.
func (d *SubjectDetector) WorkingCopy(img image.Image) image.Image {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	maxSide := max(width, height)
	if maxSide <= d.config.WorkingMaxSide {
		return img
	}

	scale := float64(d.config.WorkingMaxSide) / float64(maxSide)
	sw := max(d.config.MinWorkingSide, int(math.RoundToEven(float64(width)*scale)))
	sh := max(d.config.MinWorkingSide, int(math.RoundToEven(float64(height)*scale)))
	return imaging.Resize(img, sw, sh, imaging.Linear)
}

// BuildEnergyMap computes the gradient/local-contrast energy of img
func (d *SubjectDetector) BuildEnergyMap(img image.Image) *EnergyMap {
	gray := luminance(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	n := w * h

	g := make([]float64, n)
	for i, v := range gray.Pix[:n] {
		g[i] = float64(v) / 255.0
	}

	blurred := imaging.Blur(gray, d.config.BlurSigma)
	energy := make([]float64, n)

	// border columns and rows keep a zero gradient
	for y := 0; y < h; y++ {
		row := y * w
		for x := 0; x < w; x++ {
			i := row + x
			var gx, gy float64
			if x > 0 && x < w-1 {
				gx = math.Abs(g[i+1] - g[i-1])
			}
			if y > 0 && y < h-1 {
				gy = math.Abs(g[i+w] - g[i-w])
			}
			contrast := math.Abs(g[i] - float64(blurred.Pix[i*4])/255.0)
			energy[i] = d.config.GradientWeight*(gx+gy) + d.config.ContrastWeight*contrast
		}
	}

	return normalizeEnergy(energy, w, h)
}

// normalizeEnergy shifts values so the minimum is zero and, unless the map
// is flat, scales them so the maximum is one
func normalizeEnergy(values []float64, w, h int) *EnergyMap {
	lo := math.Inf(1)
	for _, v := range values {
		lo = math.Min(lo, v)
	}
	peak := 0.0
	for i := range values {
		values[i] -= lo
		peak = math.Max(peak, values[i])
	}
	if peak > degenerateEpsilon {
		for i := range values {
			values[i] /= peak
		}
	}
	return &EnergyMap{Width: w, Height: h, Values: values, Peak: peak}
}

// luminance converts img to 8-bit luma using ITU-R 601-2 integer weights
func luminance(img image.Image) *image.Gray {
	src := imaging.Clone(img)
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		si := y * src.Stride
		di := y * gray.Stride
		for x := 0; x < b.Dx(); x++ {
			r := uint32(src.Pix[si])
			g := uint32(src.Pix[si+1])
			bl := uint32(src.Pix[si+2])
			gray.Pix[di+x] = uint8((r*19595 + g*38470 + bl*7471 + 0x8000) >> 16)
			si += 4
		}
	}
	return gray
}
