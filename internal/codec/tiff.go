package codec

import (
	"bytes"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// TIFFEncoder writes deflate-compressed TIFF, 8 or 16 bits per sample.
type TIFFEncoder struct{}

func (e *TIFFEncoder) Format() string    { return "tiff" }
func (e *TIFFEncoder) Extension() string { return "tiff" }
func (e *TIFFEncoder) Available() bool   { return true }

func (e *TIFFEncoder) Supports(m raster.SampleModel) bool {
	return imageModel(m, raster.Byte, raster.UShort)
}

func (e *TIFFEncoder) Encode(r *raster.Raster, _ int) ([]byte, error) {
	img, err := raster.ToImage(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BMPEncoder writes uncompressed 8-bit BMP.
type BMPEncoder struct{}

func (e *BMPEncoder) Format() string    { return "bmp" }
func (e *BMPEncoder) Extension() string { return "bmp" }
func (e *BMPEncoder) Available() bool   { return true }

func (e *BMPEncoder) Supports(m raster.SampleModel) bool {
	return imageModel(m, raster.Byte)
}

func (e *BMPEncoder) Encode(r *raster.Raster, _ int) ([]byte, error) {
	img, err := raster.ToImage(r)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
