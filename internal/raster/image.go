package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ErrUnsupportedModel is returned by ToImage for models no Go image type
// can represent losslessly.
var ErrUnsupportedModel = errors.New("raster: sample model has no image.Image equivalent")

// FromImage converts a decoded image into a raster with the image's
// natural model: Gray/Alpha → 1 band, NRGBA → 4 bands, 16-bit variants as
// UShort, YCbCr/CMYK → 3 bands. Anything else is normalized to NRGBA first.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		r := New(b, SampleModel{DataType: Byte, NumBands: 1})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			dst := r.Pix[r.Offset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				dst[x] = float64(row[x])
			}
		}
		return r
	case *image.Alpha:
		r := New(b, SampleModel{DataType: Byte, NumBands: 1})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			row := src.Pix[src.PixOffset(b.Min.X, y):]
			dst := r.Pix[r.Offset(b.Min.X, y):]
			for x := 0; x < b.Dx(); x++ {
				dst[x] = float64(row[x])
			}
		}
		return r
	case *image.Gray16:
		r := New(b, SampleModel{DataType: UShort, NumBands: 1})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r.Pix[r.Offset(x, y)] = float64(src.Gray16At(x, y).Y)
			}
		}
		return r
	case *image.Alpha16:
		r := New(b, SampleModel{DataType: UShort, NumBands: 1})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r.Pix[r.Offset(x, y)] = float64(src.Alpha16At(x, y).A)
			}
		}
		return r
	case *image.NRGBA64:
		r := New(b, SampleModel{DataType: UShort, NumBands: 4})
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				c := src.NRGBA64At(x, y)
				px := r.Pixel(x, y)
				px[0], px[1], px[2], px[3] = float64(c.R), float64(c.G), float64(c.B), float64(c.A)
			}
		}
		return r
	}

	// imaging.Clone always yields an NRGBA anchored at (0,0).
	nrgba, ok := img.(*image.NRGBA)
	if !ok {
		nrgba = imaging.Clone(img)
	}
	nb := nrgba.Bounds()
	r := New(nb, SampleModel{DataType: Byte, NumBands: 4})
	for y := nb.Min.Y; y < nb.Max.Y; y++ {
		row := nrgba.Pix[nrgba.PixOffset(nb.Min.X, y):]
		dst := r.Pix[r.Offset(nb.Min.X, y):]
		for i := 0; i < nb.Dx()*4; i++ {
			dst[i] = float64(row[i])
		}
	}
	if nb.Min != b.Min {
		r = r.Translate(b.Min)
	}
	switch img.(type) {
	case *image.YCbCr, *image.CMYK:
		// Opaque by construction; keep color only.
		rgb, _ := r.Bands(0, 1, 2)
		return rgb
	}
	return r
}

// ToImage converts r into the closest Go image type. Byte and UShort
// rasters with 1–4 bands are supported: 1 → gray, 2 → gray+alpha,
// 3 → opaque color, 4 → color+alpha.
func ToImage(r *Raster) (image.Image, error) {
	m := r.Model
	if m.NumBands < 1 || m.NumBands > 4 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, m)
	}
	switch m.DataType {
	case Byte:
		if m.NumBands == 1 {
			img := image.NewGray(r.Rect)
			for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
				for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
					img.SetGray(x, y, color.Gray{Y: uint8(Clamp(Byte, r.Pix[r.Offset(x, y)]))})
				}
			}
			return img, nil
		}
		img := image.NewNRGBA(r.Rect)
		for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
			for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
				v := expandRGBA(r.Pixel(x, y), Byte, 0xff)
				img.SetNRGBA(x, y, color.NRGBA{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2]), A: uint8(v[3])})
			}
		}
		return img, nil
	case UShort:
		if m.NumBands == 1 {
			img := image.NewGray16(r.Rect)
			for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
				for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
					img.SetGray16(x, y, color.Gray16{Y: uint16(Clamp(UShort, r.Pix[r.Offset(x, y)]))})
				}
			}
			return img, nil
		}
		img := image.NewNRGBA64(r.Rect)
		for y := r.Rect.Min.Y; y < r.Rect.Max.Y; y++ {
			for x := r.Rect.Min.X; x < r.Rect.Max.X; x++ {
				v := expandRGBA(r.Pixel(x, y), UShort, 0xffff)
				img.SetNRGBA64(x, y, color.NRGBA64{R: uint16(v[0]), G: uint16(v[1]), B: uint16(v[2]), A: uint16(v[3])})
			}
		}
		return img, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedModel, m)
}

func expandRGBA(px []float64, t DataType, opaque float64) [4]float64 {
	var out [4]float64
	switch len(px) {
	case 2:
		out = [4]float64{px[0], px[0], px[0], px[1]}
	case 3:
		out = [4]float64{px[0], px[1], px[2], opaque}
	default:
		out = [4]float64{px[0], px[1], px[2], px[3]}
	}
	for i := range out {
		out[i] = Clamp(t, out[i])
	}
	return out
}
