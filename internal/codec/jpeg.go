package codec

import (
	"bytes"
	"image/jpeg"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// JPEGEncoder encodes 8-bit rasters; alpha is dropped.
type JPEGEncoder struct{}

func (e *JPEGEncoder) Format() string    { return "jpeg" }
func (e *JPEGEncoder) Extension() string { return "jpeg" }
func (e *JPEGEncoder) Available() bool   { return true }

// Supports excludes 2- and 4-band rasters since JPEG cannot carry alpha.
func (e *JPEGEncoder) Supports(m raster.SampleModel) bool {
	return m.DataType == raster.Byte && (m.NumBands == 1 || m.NumBands == 3)
}

func (e *JPEGEncoder) Encode(r *raster.Raster, quality int) ([]byte, error) {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	img, err := raster.ToImage(r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(256 * 1024)
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
