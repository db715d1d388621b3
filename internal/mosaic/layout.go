package mosaic

import (
	"fmt"
	"image"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// DefaultTileSize is used when the layout does not specify tiling.
const DefaultTileSize = 256

// Layout is an optional override of the destination geometry. Nil fields
// are unspecified.
type Layout struct {
	Origin *image.Point
	// Size is width × height.
	Size       *image.Point
	TileWidth  int
	TileHeight int
	Model      *raster.SampleModel
}

// Destination is a fully resolved destination geometry and tile grid. The
// grid is anchored at Bounds.Min.
type Destination struct {
	Bounds     image.Rectangle
	Model      raster.SampleModel
	TileWidth  int
	TileHeight int
}

// ResolveLayout derives the destination from the sources and the override.
// An override size must be positive in both dimensions. With no sources
// the override must carry origin, size and sample model.
// Otherwise the sources' model wins and bounds default to the union of the
// source bounds unless the override gives both origin and size.
func ResolveLayout(sources []raster.Image, override *Layout) (Destination, error) {
	var d Destination
	if override == nil {
		override = &Layout{}
	}
	if sz := override.Size; sz != nil && (sz.X <= 0 || sz.Y <= 0) {
		return d, fmt.Errorf("%w: size %dx%d", ErrInvalidLayout, sz.X, sz.Y)
	}

	if len(sources) == 0 {
		switch {
		case override.Origin == nil:
			return d, fmt.Errorf("%w: no sources and no origin", ErrInsufficientLayout)
		case override.Size == nil:
			return d, fmt.Errorf("%w: no sources and no size", ErrInsufficientLayout)
		case override.Model == nil || !override.Model.Valid():
			return d, fmt.Errorf("%w: no sources and no sample model", ErrInsufficientLayout)
		}
		d.Model = *override.Model
		d.Bounds = image.Rectangle{Min: *override.Origin, Max: override.Origin.Add(*override.Size)}
	} else {
		d.Model = sources[0].SampleModel()
		if override.Model != nil && !override.Model.Compatible(d.Model) {
			Logger().Debug("mosaic: ignoring layout sample model",
				"layout", override.Model.String(), "sources", d.Model.String())
		}
		if override.Origin != nil && override.Size != nil {
			d.Bounds = image.Rectangle{Min: *override.Origin, Max: override.Origin.Add(*override.Size)}
		} else {
			d.Bounds = sources[0].Bounds()
			for _, s := range sources[1:] {
				d.Bounds = d.Bounds.Union(s.Bounds())
			}
		}
	}

	d.TileWidth, d.TileHeight = override.TileWidth, override.TileHeight
	if d.TileWidth <= 0 {
		d.TileWidth = DefaultTileSize
	}
	if d.TileHeight <= 0 {
		d.TileHeight = DefaultTileSize
	}
	return d, nil
}

// NumTiles returns the tile grid dimensions.
func (d Destination) NumTiles() (nx, ny int) {
	if d.Bounds.Empty() {
		return 0, 0
	}
	nx = (d.Bounds.Dx() + d.TileWidth - 1) / d.TileWidth
	ny = (d.Bounds.Dy() + d.TileHeight - 1) / d.TileHeight
	return nx, ny
}

// TileRect returns the destination rectangle of tile (tx, ty), clipped to
// the destination bounds.
func (d Destination) TileRect(tx, ty int) image.Rectangle {
	min := d.Bounds.Min.Add(image.Pt(tx*d.TileWidth, ty*d.TileHeight))
	return image.Rectangle{Min: min, Max: min.Add(image.Pt(d.TileWidth, d.TileHeight))}.Intersect(d.Bounds)
}
