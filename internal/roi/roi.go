// Package roi provides region-of-interest membership predicates over
// image-plane coordinates.
package roi

import (
	"errors"
	"image"
	"image/color"

	"golang.org/x/image/vector"
)

// ROI selects which pixels of a source take part in a composite.
type ROI interface {
	Contains(x, y int) bool
}

// Rect is an axis-aligned rectangular region.
type Rect image.Rectangle

func (r Rect) Contains(x, y int) bool {
	return image.Pt(x, y).In(image.Rectangle(r))
}

// Polygon is a closed polygon rasterized once at construction time. A
// pixel is inside when its coverage reaches one half.
type Polygon struct {
	mask *image.Alpha
}

// ErrDegenerate is returned for polygons with fewer than three vertices.
var ErrDegenerate = errors.New("roi: polygon needs at least 3 vertices")

// NewPolygon rasterizes pts (image-plane coordinates, implicitly closed).
func NewPolygon(pts []image.Point) (*Polygon, error) {
	if len(pts) < 3 {
		return nil, ErrDegenerate
	}
	bounds := image.Rectangle{Min: pts[0], Max: pts[0].Add(image.Pt(1, 1))}
	for _, p := range pts[1:] {
		bounds = bounds.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}

	z := vector.NewRasterizer(bounds.Dx(), bounds.Dy())
	origin := bounds.Min
	z.MoveTo(float32(pts[0].X-origin.X), float32(pts[0].Y-origin.Y))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-origin.X), float32(p.Y-origin.Y))
	}
	z.ClosePath()

	mask := image.NewAlpha(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	mask.Rect = mask.Rect.Add(origin)
	return &Polygon{mask: mask}, nil
}

func (p *Polygon) Contains(x, y int) bool {
	if !image.Pt(x, y).In(p.mask.Rect) {
		return false
	}
	return p.mask.AlphaAt(x, y).A >= 0x80
}

// Bounds returns the rasterized extent of the polygon.
func (p *Polygon) Bounds() image.Rectangle { return p.mask.Rect }

// Mask treats a raster image as a membership map: a pixel is inside when
// its alpha, or gray level for opaque gray images, exceeds Cutoff. The
// image is placed with its bounds shifted by Offset.
type Mask struct {
	Image  image.Image
	Offset image.Point
	Cutoff uint8
}

func (m *Mask) Contains(x, y int) bool {
	p := image.Pt(x, y).Sub(m.Offset)
	if !p.In(m.Image.Bounds()) {
		return false
	}
	c := m.Image.At(p.X, p.Y)
	switch c := c.(type) {
	case color.Gray:
		return c.Y > m.Cutoff
	case color.Gray16:
		return uint8(c.Y>>8) > m.Cutoff
	}
	_, _, _, a := c.RGBA()
	return uint8(a>>8) > m.Cutoff
}

// Union is inside when any member is.
type Union []ROI

func (u Union) Contains(x, y int) bool {
	for _, r := range u {
		if r.Contains(x, y) {
			return true
		}
	}
	return false
}
