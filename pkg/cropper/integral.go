package cropper

import "github.com/menta2k/mockup-crop/pkg/vision"

// IntegralImage is a summed-area table over an energy map. Row 0 and
// column 0 are zero so any rectangle sum needs exactly four lookups.
type IntegralImage struct {
	W, H int
	sums []float64 // (W+1)*(H+1), row-major
}

// NewIntegralImage builds the prefix sums of m
func NewIntegralImage(m *vision.EnergyMap) *IntegralImage {
	stride := m.Width + 1
	sums := make([]float64, stride*(m.Height+1))
	for y := 0; y < m.Height; y++ {
		var rowSum float64
		src := m.Values[y*m.Width : (y+1)*m.Width]
		above := sums[y*stride : (y+1)*stride]
		dst := sums[(y+1)*stride : (y+2)*stride]
		for x, v := range src {
			rowSum += v
			dst[x+1] = above[x+1] + rowSum
		}
	}
	return &IntegralImage{W: m.Width, H: m.Height, sums: sums}
}

// Sum returns the total over [x0,x1) x [y0,y1)
func (ii *IntegralImage) Sum(x0, y0, x1, y1 int) float64 {
	stride := ii.W + 1
	return ii.sums[y1*stride+x1] - ii.sums[y0*stride+x1] - ii.sums[y1*stride+x0] + ii.sums[y0*stride+x0]
}

// Mean returns the average over a side x side square at (x, y)
func (ii *IntegralImage) Mean(x, y, side int) float64 {
	return ii.Sum(x, y, x+side, y+side) / max(1.0, float64(side*side))
}
