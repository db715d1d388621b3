// Package mosaic composites co-located source rasters into one destination
// raster.
//
// Each source contributes a weight in [0,1] per destination pixel, derived
// in priority order from its alpha mask, its ROI, or a per-band threshold
// test on its own samples. Blend averages the contributions by weight;
// Overlay takes the first contributing source. Pixels nobody contributes
// to receive the background value.
//
// Work is organized in destination tiles. Every tile is a pure function of
// the resolved configuration and read-only source data, so tiles are
// computed concurrently without locking.
package mosaic

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/AnyUserName/mosaic-cli/internal/roi"
)

// Config is the fully resolved input of one compositing invocation.
type Config struct {
	Type    Type
	Sources []raster.Image
	// Alpha holds an optional single-band mask per source. It may be
	// shorter than Sources; missing entries mean no mask.
	Alpha []raster.Image
	// ROI holds an optional membership predicate per source.
	ROI []roi.ROI
	// Threshold is the raw, possibly ragged [source][band] table.
	Threshold [][]float64
	// Background is the raw, possibly short per-band background.
	Background []float64
	Layout     *Layout
	// Workers bounds concurrent tiles in Render; 0 means runtime.NumCPU().
	Workers int
	// WeightMap requests a per-pixel weight raster alongside the output.
	WeightMap bool
}

// Op is a validated compositing operation. It is immutable and safe for
// concurrent use.
type Op struct {
	cfg        Config
	dest       Destination
	alphaMode  AlphaMode
	kinds      []weightKind
	threshold  [][]float64
	background []float64
}

// Tile is one computed destination tile.
type Tile struct {
	X, Y   int
	Raster *raster.Raster
	// Weights is nil unless Config.WeightMap is set.
	Weights          *raster.Raster
	BackgroundPixels int
}

// Stats summarizes a Render call.
type Stats struct {
	Tiles            int
	Pixels           int
	BackgroundPixels int
	Elapsed          time.Duration
}

// Result is the output of Render.
type Result struct {
	Raster  *raster.Raster
	Weights *raster.Raster
	Stats   Stats
}

// weightModel is the sample model of weight maps.
var weightModel = raster.SampleModel{DataType: raster.Double, NumBands: 1}

// New validates cfg and resolves everything that is per invocation:
// destination layout, normalized thresholds and background, alpha mode and
// the weight rule of each source.
func New(cfg Config) (*Op, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	n := len(cfg.Sources)

	for i, s := range cfg.Sources {
		if s == nil {
			return nil, fmt.Errorf("%w: source %d is nil", ErrIncompatibleSource, i)
		}
		if i > 0 && !s.SampleModel().Compatible(cfg.Sources[0].SampleModel()) {
			return nil, fmt.Errorf("%w: source %d is %s, source 0 is %s",
				ErrIncompatibleSource, i, s.SampleModel(), cfg.Sources[0].SampleModel())
		}
	}

	dest, err := ResolveLayout(cfg.Sources, cfg.Layout)
	if err != nil {
		return nil, err
	}

	for i := 0; i < n && i < len(cfg.Alpha); i++ {
		a := cfg.Alpha[i]
		if a == nil {
			continue
		}
		am := a.SampleModel()
		switch {
		case am.NumBands != 1:
			return nil, fmt.Errorf("%w: alpha %d has %d bands", ErrIncompatibleSource, i, am.NumBands)
		case am.DataType != dest.Model.DataType:
			return nil, fmt.Errorf("%w: alpha %d is %s, sources are %s",
				ErrIncompatibleSource, i, am.DataType, dest.Model.DataType)
		case am.Depth() != dest.Model.Depth():
			return nil, fmt.Errorf("%w: alpha %d has %d bits, sources have %d",
				ErrIncompatibleSource, i, am.Depth(), dest.Model.Depth())
		}
	}

	threshold, err := NormalizeThreshold(cfg.Threshold, n, dest.Model.NumBands)
	if err != nil {
		return nil, err
	}
	background, err := NormalizeBackground(cfg.Background, dest.Model.NumBands)
	if err != nil {
		return nil, err
	}
	for b, v := range background {
		background[b] = raster.Clamp(dest.Model.DataType, v)
	}

	kinds := make([]weightKind, n)
	for i := range kinds {
		switch {
		case i < len(cfg.Alpha) && cfg.Alpha[i] != nil:
			kinds[i] = weightAlpha
		case i < len(cfg.ROI) && cfg.ROI[i] != nil:
			kinds[i] = weightROI
		default:
			kinds[i] = weightThreshold
		}
	}

	op := &Op{
		cfg:        cfg,
		dest:       dest,
		alphaMode:  ResolveAlphaMode(cfg.Type, cfg.Alpha, n),
		kinds:      kinds,
		threshold:  threshold,
		background: background,
	}
	Logger().Info("mosaic: resolved",
		"type", cfg.Type.String(),
		"sources", n,
		"bounds", dest.Bounds.String(),
		"model", dest.Model.String(),
		"alpha", op.alphaMode.String())
	return op, nil
}

// Destination returns the resolved destination geometry.
func (op *Op) Destination() Destination { return op.dest }

// AlphaMode returns the alpha interpretation chosen for this invocation.
func (op *Op) AlphaMode() AlphaMode { return op.alphaMode }

// Threshold returns the normalized threshold table.
func (op *Op) Threshold() [][]float64 { return op.threshold }

// Background returns the normalized, clamped background.
func (op *Op) Background() []float64 { return op.background }

// Bounds implements raster.Image.
func (op *Op) Bounds() image.Rectangle { return op.dest.Bounds }

// SampleModel implements raster.Image.
func (op *Op) SampleModel() raster.SampleModel { return op.dest.Model }

// Fetch computes the composite over r ∩ Bounds(), which lets one mosaic
// feed another as a source.
func (op *Op) Fetch(ctx context.Context, r image.Rectangle) (*raster.Raster, error) {
	r = r.Intersect(op.dest.Bounds)
	if r.Empty() {
		return &raster.Raster{Model: op.dest.Model}, nil
	}
	dst, _, _, err := op.computeRect(ctx, r, false)
	return dst, err
}

// ComputeTile computes destination tile (tx, ty).
func (op *Op) ComputeTile(ctx context.Context, tx, ty int) (*Tile, error) {
	nx, ny := op.dest.NumTiles()
	if tx < 0 || ty < 0 || tx >= nx || ty >= ny {
		return nil, fmt.Errorf("mosaic: tile (%d,%d) outside %dx%d grid", tx, ty, nx, ny)
	}
	start := time.Now()
	dst, weights, bg, err := op.computeRect(ctx, op.dest.TileRect(tx, ty), op.cfg.WeightMap)
	if err != nil {
		return nil, fmt.Errorf("tile (%d,%d): %w", tx, ty, err)
	}
	Logger().Debug("mosaic: tile", "x", tx, "y", ty, "elapsed", time.Since(start))
	return &Tile{X: tx, Y: ty, Raster: dst, Weights: weights, BackgroundPixels: bg}, nil
}

// Render computes every tile on up to Config.Workers goroutines and
// assembles the destination. Cancelling ctx abandons tiles that have not
// started; the first tile error stops the render.
func (op *Op) Render(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{Raster: raster.New(op.dest.Bounds, op.dest.Model)}
	if op.cfg.WeightMap {
		res.Weights = raster.New(op.dest.Bounds, weightModel)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	nx, ny := op.dest.NumTiles()
	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, op.cfg.Workers)
		bgPixels atomic.Int64
		errOnce  sync.Once
		firstErr error
	)

tiles:
	for ty := 0; ty < ny; ty++ {
		for tx := 0; tx < nx; tx++ {
			if ctx.Err() != nil {
				break tiles
			}
			// At most Workers tile goroutines exist at once.
			sem <- struct{}{} // acquire
			wg.Add(1)
			go func(tx, ty int) {
				defer wg.Done()
				defer func() { <-sem }() // release

				if ctx.Err() != nil {
					return
				}
				t, err := op.ComputeTile(ctx, tx, ty)
				if err != nil {
					errOnce.Do(func() {
						firstErr = err
						cancel()
					})
					return
				}
				// Tiles are disjoint, so concurrent copies touch disjoint Pix ranges.
				res.Raster.CopyFrom(t.Raster)
				if res.Weights != nil {
					res.Weights.CopyFrom(t.Weights)
				}
				bgPixels.Add(int64(t.BackgroundPixels))
			}(tx, ty)
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Stats = Stats{
		Tiles:            nx * ny,
		Pixels:           op.dest.Bounds.Dx() * op.dest.Bounds.Dy(),
		BackgroundPixels: int(bgPixels.Load()),
		Elapsed:          time.Since(start),
	}
	return res, nil
}

// computeRect composites rect. It fetches the overlapping part of every
// source and its alpha, then reduces pixel by pixel.
func (op *Op) computeRect(ctx context.Context, rect image.Rectangle, withWeights bool) (*raster.Raster, *raster.Raster, int, error) {
	dst := raster.New(rect, op.dest.Model)
	var weights *raster.Raster
	if withWeights {
		weights = raster.New(rect, weightModel)
	}

	n := len(op.cfg.Sources)
	tiles := make([]sourceTile, n)
	present := 0
	for i, src := range op.cfg.Sources {
		sr := rect.Intersect(src.Bounds())
		if sr.Empty() {
			continue
		}
		data, err := src.Fetch(ctx, sr)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("fetch source %d: %w", i, err)
		}
		st := sourceTile{
			kind:      op.kinds[i],
			data:      data,
			threshold: op.threshold[i],
		}
		switch st.kind {
		case weightAlpha:
			a := op.cfg.Alpha[i]
			st.alpha = &raster.Raster{Model: a.SampleModel()}
			if ar := sr.Intersect(a.Bounds()); !ar.Empty() {
				if st.alpha, err = a.Fetch(ctx, ar); err != nil {
					return nil, nil, 0, fmt.Errorf("fetch alpha %d: %w", i, err)
				}
			}
		case weightROI:
			st.roi = op.cfg.ROI[i]
		}
		tiles[i] = st
		present++
	}

	area := rect.Dx() * rect.Dy()
	if present == 0 {
		dst.Fill(op.background)
		return dst, weights, area, nil
	}

	var (
		w      = make([]float64, n)
		px     = make([][]float64, n)
		dt     = op.dest.Model.DataType
		bg     int
		isOver = op.cfg.Type == Overlay
	)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			for i := range tiles {
				w[i] = tiles[i].weightAt(x, y, op.alphaMode)
				px[i] = nil
				if w[i] != 0 {
					px[i] = tiles[i].data.Pixel(x, y)
				}
			}
			out := dst.Pixel(x, y)
			var sum float64
			if isOver {
				sum = overlayPixel(out, px, w, op.background)
			} else {
				sum = blendPixel(out, px, w, op.background, dt)
			}
			if sum == 0 {
				bg++
			}
			if weights != nil {
				weights.Pix[weights.Offset(x, y)] = sum
			}
		}
	}
	return dst, weights, bg, nil
}
