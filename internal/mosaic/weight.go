package mosaic

import (
	"image"
	"math"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/AnyUserName/mosaic-cli/internal/roi"
)

// weightKind is the rule a source's weight is derived from. It is fixed
// per source for a whole invocation.
type weightKind uint8

const (
	weightThreshold weightKind = iota
	weightAlpha
	weightROI
)

func (k weightKind) String() string {
	switch k {
	case weightAlpha:
		return "alpha"
	case weightROI:
		return "roi"
	}
	return "threshold"
}

// sourceTile is the tile-local view of one source. data is nil when the
// source does not overlap the tile.
type sourceTile struct {
	kind      weightKind
	data      *raster.Raster
	alpha     *raster.Raster
	roi       roi.ROI
	threshold []float64
}

// weightAt returns the weight of s at (x, y) in [0, 1].
func (s *sourceTile) weightAt(x, y int, mode AlphaMode) float64 {
	if s.data == nil || !image.Pt(x, y).In(s.data.Rect) {
		return 0
	}
	switch s.kind {
	case weightAlpha:
		// alpha.At is 0 outside the mask's own bounds.
		a := s.alpha.At(x, y, 0)
		if mode == Bitmask {
			if a > 0 {
				return 1
			}
			return 0
		}
		return alphaFraction(s.alpha.Model.DataType, a)
	case weightROI:
		if s.roi.Contains(x, y) {
			return 1
		}
		return 0
	}
	// Every band must reach its threshold. NaN samples never do.
	px := s.data.Pixel(x, y)
	for b, v := range px {
		if !(v >= s.threshold[b]) {
			return 0
		}
	}
	return 1
}

// alphaFraction maps an alpha sample to [0, 1]. Integral types are scaled
// by their maximum positive value; float types are taken as fractions.
func alphaFraction(t raster.DataType, a float64) float64 {
	switch t {
	case raster.Byte:
		a /= math.MaxUint8
	case raster.UShort:
		a /= math.MaxUint16
	case raster.Short:
		a /= math.MaxInt16
	case raster.Int:
		a /= math.MaxInt32
	}
	if a < 0 || math.IsNaN(a) {
		return 0
	}
	if a > 1 {
		return 1
	}
	return a
}
