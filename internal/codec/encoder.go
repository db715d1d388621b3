// Package codec decodes source files into rasters and encodes composited
// rasters into output formats.
package codec

import (
	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// Encoder encodes a raster to a specific format.
type Encoder interface {
	// Format returns the output format name (e.g. "png", "tiff", "mraw").
	Format() string

	// Encode converts the raster to bytes at the given quality (1-100).
	// Lossless encoders ignore quality.
	Encode(r *raster.Raster, quality int) ([]byte, error)

	// Supports reports whether the encoder can hold samples of model m
	// without loss of type or bands.
	Supports(m raster.SampleModel) bool

	// Available returns true if the encoder is ready to use.
	// External encoders (cwebp) may not be installed.
	Available() bool

	// Extension returns the file extension without dot.
	Extension() string
}

// imageModel reports whether m maps onto a Go image type (see raster.ToImage).
func imageModel(m raster.SampleModel, types ...raster.DataType) bool {
	if m.NumBands < 1 || m.NumBands > 4 {
		return false
	}
	for _, t := range types {
		if m.DataType == t {
			return true
		}
	}
	return false
}
