package codec

import (
	"bytes"

	"github.com/AnyUserName/mosaic-cli/internal/rawfile"
	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// MRAWEncoder writes any raster losslessly; used for float, signed and
// many-band models the image formats cannot hold.
type MRAWEncoder struct{}

func (e *MRAWEncoder) Format() string                   { return "mraw" }
func (e *MRAWEncoder) Extension() string                { return rawfile.Extension }
func (e *MRAWEncoder) Available() bool                  { return true }
func (e *MRAWEncoder) Supports(raster.SampleModel) bool { return true }

func (e *MRAWEncoder) Encode(r *raster.Raster, _ int) ([]byte, error) {
	var buf bytes.Buffer
	if err := rawfile.Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
