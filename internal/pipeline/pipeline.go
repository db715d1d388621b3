package pipeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/AnyUserName/mosaic-cli/internal/codec"
	"github.com/AnyUserName/mosaic-cli/internal/hasher"
	"github.com/AnyUserName/mosaic-cli/internal/job"
	"github.com/AnyUserName/mosaic-cli/internal/mosaic"
	"github.com/AnyUserName/mosaic-cli/internal/profile"
	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/AnyUserName/mosaic-cli/internal/roi"
)

// Config holds all parameters for a render pipeline run.
type Config struct {
	JobPath   string
	OutputDir string
	Profile   profile.Profile
	Workers   int
	Verbose   bool
	Format    string // overrides Profile.Format
	Quality   int    // overrides Profile.Quality when > 0
	Weights   bool   // also write the per-pixel weight map
	Preview   int    // overrides Profile.Preview when > 0
}

// Pipeline turns a job file into composited outputs.
type Pipeline struct {
	cfg      Config
	registry *codec.Registry
}

// Prepared is a loaded job with its sources decoded and the compositing
// operation resolved, ready to render.
type Prepared struct {
	Job        *job.Job
	Inputs     []SourceFiles
	Mosaic     mosaic.Config
	Op         *mosaic.Op
	InputBytes int64
}

// New creates a configured pipeline.
func New(cfg Config) *Pipeline {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	return &Pipeline{
		cfg:      cfg,
		registry: codec.NewRegistry(),
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.cfg.Verbose {
		fmt.Fprintf(os.Stderr, "[mosaic] "+format+"\n", args...)
	}
}

// Prepare loads and validates the job, decodes every source and resolves
// the compositing operation. Nothing is written.
func (p *Pipeline) Prepare(ctx context.Context) (*Prepared, error) {
	j, err := job.Load(p.cfg.JobPath)
	if err != nil {
		return nil, err
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}

	// Step 1: Locate files.
	inputs, err := ResolveInputs(filepath.Dir(p.cfg.JobPath), j)
	if err != nil {
		return nil, fmt.Errorf("inputs: %w", err)
	}
	var inputBytes int64
	for _, in := range inputs {
		inputBytes += in.Image.Size
		if in.Alpha != nil {
			inputBytes += in.Alpha.Size
		}
		if in.Mask != nil {
			inputBytes += in.Mask.Size
		}
	}
	p.logf("job %s: %d sources, %s", filepath.Base(p.cfg.JobPath), len(inputs), formatSize(inputBytes))

	// Step 2: Decode sources in parallel.
	bands := 0
	if j.Layout != nil {
		bands = j.Layout.Bands
	}
	results := make([]loadResult, len(inputs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.cfg.Workers)

	for i := range inputs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			if ctx.Err() != nil {
				results[idx].err = ctx.Err()
				return
			}
			results[idx] = loadSource(idx, j.Sources[idx], inputs[idx], bands)
			if results[idx].err == nil {
				r := results[idx].image
				p.logf("decoded: %s %s at %v", inputs[idx].Image.RelPath, r.Model, r.Rect)
			}
		}(i)
	}
	wg.Wait()

	// Step 3: Assemble the compositing config.
	typ, err := mosaic.ParseType(j.Type)
	if err != nil {
		return nil, err
	}
	mc := mosaic.Config{
		Type:       typ,
		Sources:    make([]raster.Image, len(results)),
		Alpha:      make([]raster.Image, len(results)),
		ROI:        make([]roi.ROI, len(results)),
		Threshold:  make([][]float64, len(results)),
		Background: j.Background,
		Workers:    p.cfg.Workers,
		WeightMap:  p.cfg.Weights,
	}
	for i, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		mc.Sources[i] = r.image
		if r.alpha != nil {
			mc.Alpha[i] = r.alpha
		}
		mc.ROI[i] = r.roi
		mc.Threshold[i] = j.Sources[i].Threshold
	}

	layout, err := buildLayout(j.Layout)
	if err != nil {
		return nil, err
	}
	if layout.TileWidth <= 0 || layout.TileHeight <= 0 {
		dest, err := mosaic.ResolveLayout(mc.Sources, layout)
		if err != nil {
			return nil, err
		}
		fillTile(layout, p.cfg.Profile, dest.Bounds.Dx(), dest.Bounds.Dy())
	}
	mc.Layout = layout

	op, err := mosaic.New(mc)
	if err != nil {
		return nil, err
	}
	return &Prepared{Job: j, Inputs: inputs, Mosaic: mc, Op: op, InputBytes: inputBytes}, nil
}

// Run renders the job and writes its outputs into OutputDir. The report is
// returned, not written.
func (p *Pipeline) Run(ctx context.Context) (*job.Report, error) {
	p.logf("%s", p.registry.String())

	prep, err := p.Prepare(ctx)
	if err != nil {
		return nil, err
	}
	op := prep.Op
	dest := op.Destination()
	p.logf("destination %v %s, tiles %dx%d, alpha %s",
		dest.Bounds, dest.Model, dest.TileWidth, dest.TileHeight, op.AlphaMode())

	res, err := op.Render(ctx)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	p.logf("rendered %d tiles in %s (%d background pixels)",
		res.Stats.Tiles, res.Stats.Elapsed, res.Stats.BackgroundPixels)

	if err := os.MkdirAll(p.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	prof := p.cfg.Profile
	format := prof.Format
	if p.cfg.Format != "" {
		format = p.cfg.Format
	}
	quality := prof.Quality
	if p.cfg.Quality > 0 {
		quality = p.cfg.Quality
	}

	enc, err := p.registry.ResolveFormat(format, dest.Model)
	if err != nil {
		return nil, err
	}
	if enc.Format() != format {
		p.logf("%s cannot hold %s, writing %s", format, dest.Model, enc.Format())
	}

	r := job.NewReport(prof.Name)
	r.Type = prep.Mosaic.Type.String()
	r.AlphaMode = op.AlphaMode().String()
	r.BuildInfo = &job.BuildInfo{
		Workers:    p.cfg.Workers,
		TileWidth:  dest.TileWidth,
		TileHeight: dest.TileHeight,
	}
	b := dest.Bounds
	r.Bounds = [4]int{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y}
	r.Model = dest.Model.String()

	name := prep.Job.OutputName()
	out, err := writeOutput(p.cfg.OutputDir, name, "mosaic", res.Raster, enc, quality)
	if err != nil {
		return nil, err
	}
	r.Outputs = append(r.Outputs, out)
	p.logf("wrote %s (%s)", out.Path, formatSize(out.Size))

	if res.Weights != nil {
		wenc := p.registry.Get("mraw")
		out, err := writeOutput(p.cfg.OutputDir, name+".weights", "weights", res.Weights, wenc, 0)
		if err != nil {
			return nil, err
		}
		r.Outputs = append(r.Outputs, out)
		p.logf("wrote %s (%s)", out.Path, formatSize(out.Size))
	}

	edge := prof.Preview
	if p.cfg.Preview > 0 {
		edge = p.cfg.Preview
	}
	if edge > 0 {
		out, ok, err := writePreview(p.cfg.OutputDir, name, res.Raster, edge, p.registry, quality)
		switch {
		case err != nil:
			return nil, err
		case ok:
			r.Outputs = append(r.Outputs, out)
			p.logf("wrote %s (%s)", out.Path, formatSize(out.Size))
		default:
			p.logf("no preview for %s", dest.Model)
		}
	}

	r.Stats = job.Stats{
		Sources:          len(prep.Inputs),
		InputBytes:       prep.InputBytes,
		Tiles:            res.Stats.Tiles,
		Pixels:           res.Stats.Pixels,
		BackgroundPixels: res.Stats.BackgroundPixels,
		RasterHash:       hasher.RasterHash(res.Raster, 16),
		ElapsedMS:        res.Stats.Elapsed.Milliseconds(),
	}
	r.ComputeStats()
	return r, nil
}

// buildLayout converts the job layout into the engine's override.
func buildLayout(l *job.Layout) (*mosaic.Layout, error) {
	out := &mosaic.Layout{}
	if l == nil {
		return out, nil
	}
	if l.Origin != nil {
		pt := image.Pt(l.Origin[0], l.Origin[1])
		out.Origin = &pt
	}
	if l.Size != nil {
		sz := image.Pt(l.Size[0], l.Size[1])
		out.Size = &sz
	}
	if l.Tile != nil {
		out.TileWidth, out.TileHeight = l.Tile[0], l.Tile[1]
	}
	if l.DataType != "" && l.Bands > 0 {
		dt, err := raster.ParseDataType(l.DataType)
		if err != nil {
			return nil, fmt.Errorf("layout: %w", err)
		}
		out.Model = &raster.SampleModel{DataType: dt, NumBands: l.Bands}
	}
	return out, nil
}

// fillTile sets the tile dimensions the job left open from the profile,
// keeping any dimension the job gave.
func fillTile(l *mosaic.Layout, prof profile.Profile, width, height int) {
	tw, th := prof.TileFor(width, height)
	if l.TileWidth <= 0 {
		l.TileWidth = tw
	}
	if l.TileHeight <= 0 {
		l.TileHeight = th
	}
}

func formatSize(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
