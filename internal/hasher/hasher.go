package hasher

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"math"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/cespare/xxhash/v2"
)

// ContentHash computes the xxHash64 of data and returns a hex string
// truncated to the given length. Output filenames use 16 hex chars.
func ContentHash(data []byte, hexLen int) string {
	return truncate(xxhash.Sum64(data), hexLen)
}

// ContentHashReader computes xxHash64 from a reader, streaming.
func ContentHashReader(r io.Reader, hexLen int) (string, error) {
	h := xxhash.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return truncate(h.Sum64(), hexLen), nil
}

// RasterHash hashes the geometry, sample model and samples of r. Two
// rasters hash equal iff they would encode to identical MRAW payloads.
func RasterHash(r *raster.Raster, hexLen int) string {
	h := xxhash.New()
	var hdr [7 * 8]byte
	for i, v := range []int{
		r.Rect.Min.X, r.Rect.Min.Y, r.Rect.Dx(), r.Rect.Dy(),
		int(r.Model.DataType), r.Model.NumBands, r.Model.Depth(),
	} {
		binary.LittleEndian.PutUint64(hdr[i*8:], uint64(v))
	}
	h.Write(hdr[:])

	buf := make([]byte, 0, 8*r.Rect.Dx()*r.Model.NumBands)
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		row := r.Pix[r.Offset(r.Rect.Min.X, y):]
		buf = buf[:0]
		for _, v := range row[:r.Rect.Dx()*r.Model.NumBands] {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
		h.Write(buf)
	}
	return truncate(h.Sum64(), hexLen)
}

func truncate(sum uint64, hexLen int) string {
	full := hex.EncodeToString(binary.BigEndian.AppendUint64(nil, sum))
	if hexLen > 0 && hexLen < len(full) {
		return full[:hexLen]
	}
	return full
}
