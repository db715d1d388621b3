// Package rawfile reads and writes MRAW, a minimal lossless container for
// rasters of any sample type.
//
// Layout (little endian):
//
//	magic    [4]byte "MRAW"
//	version  uint8
//	dtype    uint8
//	depth    uint8
//	_        uint8
//	bands    uint32
//	minX     int32
//	minY     int32
//	width    uint32
//	height   uint32
//	payload  zstd(samples in native width, band-interleaved, row-major)
package rawfile

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"sync"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/klauspost/compress/zstd"
)

const (
	Extension = "mraw"
	version   = 1
	// maxSamples bounds decoder allocations (1 Gi samples).
	maxSamples = 1 << 30
)

var magic = [4]byte{'M', 'R', 'A', 'W'}

var (
	ErrBadMagic   = errors.New("rawfile: not an MRAW stream")
	ErrBadVersion = errors.New("rawfile: unsupported version")
	ErrBadHeader  = errors.New("rawfile: invalid header")
)

type header struct {
	Magic   [4]byte
	Version uint8
	DType   uint8
	Depth   uint8
	_       uint8
	Bands   uint32
	MinX    int32
	MinY    int32
	Width   uint32
	Height  uint32
}

var encPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		return enc
	},
}

// Encode writes r to w.
func Encode(w io.Writer, r *raster.Raster) error {
	m := r.Model
	h := header{
		Magic:   magic,
		Version: version,
		DType:   uint8(m.DataType),
		Depth:   uint8(m.Depth()),
		Bands:   uint32(m.NumBands),
		MinX:    int32(r.Rect.Min.X),
		MinY:    int32(r.Rect.Min.Y),
		Width:   uint32(r.Rect.Dx()),
		Height:  uint32(r.Rect.Dy()),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	enc := encPool.Get().(*zstd.Encoder)
	defer encPool.Put(enc)
	enc.Reset(w)

	bw := bufio.NewWriterSize(enc, 64*1024)
	width := m.DataType.Bits() / 8
	buf := make([]byte, 8)
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		row := r.Pix[r.Offset(r.Rect.Min.X, y):]
		for _, v := range row[:r.Rect.Dx()*m.NumBands] {
			putSample(buf, m.DataType, v)
			if _, err := bw.Write(buf[:width]); err != nil {
				enc.Close()
				return fmt.Errorf("zstd encode: %w", err)
			}
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return fmt.Errorf("zstd encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd encode: %w", err)
	}
	return nil
}

// Decode reads one raster from rd.
func Decode(rd io.Reader) (*raster.Raster, error) {
	var h header
	if err := binary.Read(rd, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if h.Magic != magic {
		return nil, ErrBadMagic
	}
	if h.Version != version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, h.Version)
	}
	m := raster.SampleModel{
		DataType: raster.DataType(h.DType),
		NumBands: int(h.Bands),
		BitDepth: int(h.Depth),
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: model %s", ErrBadHeader, m)
	}
	n := uint64(h.Width) * uint64(h.Height) * uint64(h.Bands)
	if n > maxSamples {
		return nil, fmt.Errorf("%w: %d samples exceeds limit", ErrBadHeader, n)
	}

	dec, err := zstd.NewReader(rd, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	defer dec.Close()

	rect := image.Rect(int(h.MinX), int(h.MinY), int(h.MinX)+int(h.Width), int(h.MinY)+int(h.Height))
	r := raster.New(rect, m)
	width := m.DataType.Bits() / 8
	br := bufio.NewReaderSize(dec, 64*1024)
	buf := make([]byte, 8)
	for i := range r.Pix {
		if _, err := io.ReadFull(br, buf[:width]); err != nil {
			return nil, fmt.Errorf("zstd decode: sample %d: %w", i, err)
		}
		r.Pix[i] = getSample(buf, m.DataType)
	}
	return r, nil
}

func putSample(b []byte, t raster.DataType, v float64) {
	v = raster.Clamp(t, v)
	switch t {
	case raster.Byte:
		b[0] = uint8(v)
	case raster.UShort:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case raster.Short:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case raster.Int:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	case raster.Float:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	default:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	}
}

func getSample(b []byte, t raster.DataType) float64 {
	switch t {
	case raster.Byte:
		return float64(b[0])
	case raster.UShort:
		return float64(binary.LittleEndian.Uint16(b))
	case raster.Short:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case raster.Int:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case raster.Float:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b))
}
