package codec

import (
	"bytes"
	"image/png"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// PNGEncoder encodes 8- and 16-bit rasters with 1–4 bands.
type PNGEncoder struct{}

func (e *PNGEncoder) Format() string    { return "png" }
func (e *PNGEncoder) Extension() string { return "png" }
func (e *PNGEncoder) Available() bool   { return true }

func (e *PNGEncoder) Supports(m raster.SampleModel) bool {
	return imageModel(m, raster.Byte, raster.UShort)
}

func (e *PNGEncoder) Encode(r *raster.Raster, _ int) ([]byte, error) {
	img, err := raster.ToImage(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(512 * 1024) // pre-alloc 512KB

	enc := &png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
