// Package raster holds the typed multi-band sample model shared by the
// compositing engine and its collaborators.
//
// Samples are stored as float64 regardless of the declared data type; the
// data type governs clamping, rounding and alpha normalization only.
package raster

import (
	"context"
	"fmt"
	"image"
	"math"
	"strings"
)

// DataType is the declared sample type of a raster.
type DataType uint8

const (
	Byte DataType = iota + 1
	UShort
	Short
	Int
	Float
	Double
)

var dataTypeNames = map[DataType]string{
	Byte:   "byte",
	UShort: "ushort",
	Short:  "short",
	Int:    "int",
	Float:  "float",
	Double: "double",
}

func (t DataType) String() string {
	if s, ok := dataTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("DataType(%d)", uint8(t))
}

// ParseDataType maps a name such as "byte" or "float" to its DataType.
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range dataTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// Bits returns the storage width of one sample.
func (t DataType) Bits() int {
	switch t {
	case Byte:
		return 8
	case UShort, Short:
		return 16
	case Int, Float:
		return 32
	case Double:
		return 64
	}
	return 0
}

// Integral reports whether samples are rounded and clamped on store.
func (t DataType) Integral() bool {
	return t == Byte || t == UShort || t == Short || t == Int
}

// Range returns the representable sample range.
func (t DataType) Range() (lo, hi float64) {
	switch t {
	case Byte:
		return 0, math.MaxUint8
	case UShort:
		return 0, math.MaxUint16
	case Short:
		return math.MinInt16, math.MaxInt16
	case Int:
		return math.MinInt32, math.MaxInt32
	case Float:
		return -math.MaxFloat32, math.MaxFloat32
	}
	return -math.MaxFloat64, math.MaxFloat64
}

// Clamp rounds v to nearest and clamps it into the range of t. Float
// values are narrowed to float32 precision; doubles pass through.
func Clamp(t DataType, v float64) float64 {
	switch t {
	case Double:
		return v
	case Float:
		lo, hi := t.Range()
		if v < lo {
			v = lo
		} else if v > hi {
			v = hi
		}
		return float64(float32(v))
	}
	lo, hi := t.Range()
	if math.IsNaN(v) {
		return 0
	}
	v = math.Floor(v + 0.5)
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SampleModel describes the per-pixel layout shared by all rasters of one
// composite.
type SampleModel struct {
	DataType DataType
	NumBands int
	// BitDepth is the significant bits per sample; 0 means DataType.Bits().
	BitDepth int
}

// Depth returns the effective bit depth.
func (m SampleModel) Depth() int {
	if m.BitDepth > 0 {
		return m.BitDepth
	}
	return m.DataType.Bits()
}

// Valid reports whether m can back a raster.
func (m SampleModel) Valid() bool {
	_, known := dataTypeNames[m.DataType]
	return known && m.NumBands > 0 && m.Depth() <= m.DataType.Bits()
}

// Compatible reports whether two models share data type, depth and bands.
func (m SampleModel) Compatible(o SampleModel) bool {
	return m.DataType == o.DataType && m.NumBands == o.NumBands && m.Depth() == o.Depth()
}

func (m SampleModel) String() string {
	return fmt.Sprintf("%s×%d/%dbit", m.DataType, m.NumBands, m.Depth())
}

// Image is the blocking-fetch contract every compositing source satisfies.
// Fetch may trigger upstream computation and block until the data for r is
// ready; the returned raster covers r ∩ Bounds() and must not be modified.
type Image interface {
	Bounds() image.Rectangle
	SampleModel() SampleModel
	Fetch(ctx context.Context, r image.Rectangle) (*Raster, error)
}

// Raster is an in-memory, band-interleaved raster.
type Raster struct {
	Rect  image.Rectangle
	Model SampleModel
	// Stride is the Pix distance between vertically adjacent pixels.
	Stride int
	Pix    []float64
}

// New allocates a zeroed raster.
func New(r image.Rectangle, m SampleModel) *Raster {
	stride := r.Dx() * m.NumBands
	return &Raster{
		Rect:   r,
		Model:  m,
		Stride: stride,
		Pix:    make([]float64, stride*r.Dy()),
	}
}

func (r *Raster) Bounds() image.Rectangle  { return r.Rect }
func (r *Raster) SampleModel() SampleModel { return r.Model }

// Fetch returns a read-only view of rect ∩ r.Rect.
func (r *Raster) Fetch(_ context.Context, rect image.Rectangle) (*Raster, error) {
	return r.SubRaster(rect), nil
}

// Offset returns the Pix index of band 0 at (x, y).
func (r *Raster) Offset(x, y int) int {
	return (y-r.Rect.Min.Y)*r.Stride + (x-r.Rect.Min.X)*r.Model.NumBands
}

// At returns band b at (x, y), or 0 outside the raster.
func (r *Raster) At(x, y, b int) float64 {
	if !image.Pt(x, y).In(r.Rect) {
		return 0
	}
	return r.Pix[r.Offset(x, y)+b]
}

// Set stores v, clamped to the data type, at band b of (x, y).
func (r *Raster) Set(x, y, b int, v float64) {
	if !image.Pt(x, y).In(r.Rect) {
		return
	}
	r.Pix[r.Offset(x, y)+b] = Clamp(r.Model.DataType, v)
}

// Pixel returns the band slice of (x, y), aliasing Pix.
func (r *Raster) Pixel(x, y int) []float64 {
	i := r.Offset(x, y)
	return r.Pix[i : i+r.Model.NumBands : i+r.Model.NumBands]
}

// SubRaster returns a view of rect ∩ r.Rect that shares storage with r.
func (r *Raster) SubRaster(rect image.Rectangle) *Raster {
	rect = rect.Intersect(r.Rect)
	if rect.Empty() {
		return &Raster{Model: r.Model}
	}
	i := r.Offset(rect.Min.X, rect.Min.Y)
	return &Raster{
		Rect:   rect,
		Model:  r.Model,
		Stride: r.Stride,
		Pix:    r.Pix[i:],
	}
}

// Fill sets every pixel of r to px (one value per band, clamped).
func (r *Raster) Fill(px []float64) {
	n := r.Model.NumBands
	vals := make([]float64, n)
	for b := range vals {
		vals[b] = Clamp(r.Model.DataType, px[b])
	}
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		row := r.Pix[(y-r.Rect.Min.Y)*r.Stride:]
		for x := 0; x < r.Rect.Dx(); x++ {
			copy(row[x*n:x*n+n], vals)
		}
	}
}

// CopyFrom copies the overlap of src into r. Models must have equal bands.
func (r *Raster) CopyFrom(src *Raster) {
	rect := r.Rect.Intersect(src.Rect)
	if rect.Empty() {
		return
	}
	n := rect.Dx() * r.Model.NumBands
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		d := r.Offset(rect.Min.X, y)
		s := src.Offset(rect.Min.X, y)
		copy(r.Pix[d:d+n], src.Pix[s:s+n])
	}
}

// Bands returns a new raster holding the selected bands of r in order.
func (r *Raster) Bands(idx ...int) (*Raster, error) {
	for _, b := range idx {
		if b < 0 || b >= r.Model.NumBands {
			return nil, fmt.Errorf("band %d out of range [0,%d)", b, r.Model.NumBands)
		}
	}
	m := r.Model
	m.NumBands = len(idx)
	out := New(r.Rect, m)
	for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
		for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
			src := r.Pixel(x, y)
			dst := out.Pixel(x, y)
			for i, b := range idx {
				dst[i] = src[b]
			}
		}
	}
	return out, nil
}

// Translate moves the raster origin to p without copying samples.
func (r *Raster) Translate(p image.Point) *Raster {
	out := *r
	out.Rect = r.Rect.Sub(r.Rect.Min).Add(p)
	return &out
}

// Func adapts a fetch function to the Image interface, for sources whose
// data is produced lazily upstream.
type Func struct {
	Rect  image.Rectangle
	Model SampleModel
	Fn    func(ctx context.Context, r image.Rectangle) (*Raster, error)
}

func (f *Func) Bounds() image.Rectangle  { return f.Rect }
func (f *Func) SampleModel() SampleModel { return f.Model }

func (f *Func) Fetch(ctx context.Context, r image.Rectangle) (*Raster, error) {
	r = r.Intersect(f.Rect)
	if r.Empty() {
		return &Raster{Model: f.Model}, nil
	}
	return f.Fn(ctx, r)
}
