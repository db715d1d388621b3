package mosaic

import "github.com/AnyUserName/mosaic-cli/internal/raster"

// blendPixel writes the weighted average of the contributing samples into
// dst, or bg when no source has weight. It returns the weight sum.
// px[i] is nil for sources absent at this pixel.
func blendPixel(dst []float64, px [][]float64, w []float64, bg []float64, dt raster.DataType) float64 {
	var sum float64
	for i := range px {
		if px[i] != nil {
			sum += w[i]
		}
	}
	if sum == 0 {
		copy(dst, bg)
		return 0
	}
	for b := range dst {
		var num float64
		for i, p := range px {
			if p != nil && w[i] != 0 {
				num += p[b] * w[i]
			}
		}
		dst[b] = raster.Clamp(dt, num/sum)
	}
	return sum
}

// overlayPixel copies the first source with nonzero weight into dst, or bg
// when there is none. It returns the winning weight (0 for background).
func overlayPixel(dst []float64, px [][]float64, w []float64, bg []float64) float64 {
	for i, p := range px {
		if p != nil && w[i] != 0 {
			copy(dst, p)
			return w[i]
		}
	}
	copy(dst, bg)
	return 0
}
