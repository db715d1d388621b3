package pipeline

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/AnyUserName/mosaic-cli/internal/codec"
	"github.com/AnyUserName/mosaic-cli/internal/hasher"
	"github.com/AnyUserName/mosaic-cli/internal/job"
	"github.com/AnyUserName/mosaic-cli/internal/raster"
	"github.com/AnyUserName/mosaic-cli/internal/roi"
	"github.com/disintegration/imaging"
)

// loadResult holds one decoded job source.
type loadResult struct {
	image *raster.Raster
	alpha *raster.Raster
	roi   roi.ROI
	err   error
}

// loadSource decodes the files of one source and places them in the image
// plane. bands > 0 trims the source to its first bands bands.
func loadSource(idx int, s job.Source, files SourceFiles, bands int) loadResult {
	var result loadResult
	fail := func(format string, args ...any) loadResult {
		result.err = fmt.Errorf("source[%d] "+format, append([]any{idx}, args...)...)
		return result
	}

	img, err := codec.Decode(files.Image.AbsPath)
	if err != nil {
		return fail("decode %s: %w", files.Image.RelPath, err)
	}
	origin := img.Rect.Min
	if s.Origin != nil {
		origin = image.Pt(s.Origin[0], s.Origin[1])
	}
	img = img.Translate(origin)

	// Split the last band off as alpha before trimming bands.
	if s.Alpha == job.AlphaSelf {
		n := img.Model.NumBands
		if n < 2 {
			return fail("alpha \"self\" needs at least 2 bands, %s has %d", files.Image.RelPath, n)
		}
		if result.alpha, err = img.Bands(n - 1); err != nil {
			return fail("split alpha: %w", err)
		}
		if img, err = img.Bands(seq(n - 1)...); err != nil {
			return fail("split alpha: %w", err)
		}
	}
	if bands > 0 && img.Model.NumBands > bands {
		if img, err = img.Bands(seq(bands)...); err != nil {
			return fail("trim bands: %w", err)
		}
	}
	result.image = img

	if files.Alpha != nil {
		a, err := codec.Decode(files.Alpha.AbsPath)
		if err != nil {
			return fail("decode alpha %s: %w", files.Alpha.RelPath, err)
		}
		// Color masks carry coverage in their last band.
		if a.Model.NumBands > 1 {
			if a, err = a.Bands(a.Model.NumBands - 1); err != nil {
				return fail("alpha band: %w", err)
			}
		}
		alphaOrigin := origin
		if s.AlphaOrigin != nil {
			alphaOrigin = image.Pt(s.AlphaOrigin[0], s.AlphaOrigin[1])
		}
		result.alpha = a.Translate(alphaOrigin)
	}

	if s.ROI != nil {
		switch {
		case s.ROI.Rect != nil:
			r := s.ROI.Rect
			result.roi = roi.Rect(image.Rect(r[0], r[1], r[2], r[3]))
		case len(s.ROI.Polygon) > 0:
			pts := make([]image.Point, len(s.ROI.Polygon))
			for i, p := range s.ROI.Polygon {
				pts[i] = image.Pt(p[0], p[1])
			}
			poly, err := roi.NewPolygon(pts)
			if err != nil {
				return fail("roi: %w", err)
			}
			result.roi = poly
		case files.Mask != nil:
			m, err := imaging.Open(files.Mask.AbsPath)
			if err != nil {
				return fail("decode roi mask %s: %w", files.Mask.RelPath, err)
			}
			// The mask is anchored at the source origin.
			result.roi = &roi.Mask{Image: m, Offset: origin.Sub(m.Bounds().Min)}
		}
	}
	return result
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// writeOutput encodes r and writes it content-addressed under outDir as
// <name>.<w>x<h>.<hash8>.<ext>.
func writeOutput(outDir, name, kind string, r *raster.Raster, enc codec.Encoder, quality int) (job.Output, error) {
	data, err := enc.Encode(r, quality)
	if err != nil {
		return job.Output{}, fmt.Errorf("encode %s as %s: %w", kind, enc.Format(), err)
	}
	return writeFile(outDir, name, kind, enc, r.Rect.Dx(), r.Rect.Dy(), data)
}

func writeFile(outDir, name, kind string, enc codec.Encoder, w, h int, data []byte) (job.Output, error) {
	contentHash := hasher.ContentHash(data, 16)
	fileName := fmt.Sprintf("%s.%dx%d.%s.%s", name, w, h, contentHash[:8], enc.Extension())
	if err := os.WriteFile(filepath.Join(outDir, fileName), data, 0o644); err != nil {
		return job.Output{}, fmt.Errorf("write %s: %w", fileName, err)
	}
	return job.Output{
		Kind:   kind,
		Format: enc.Format(),
		Width:  w,
		Height: h,
		Size:   int64(len(data)),
		Hash:   contentHash,
		Path:   fileName,
	}, nil
}

// writePreview writes a thumbnail fitting edge×edge. Only models with an
// image.Image equivalent get a preview.
func writePreview(outDir, name string, r *raster.Raster, edge int, reg *codec.Registry, quality int) (job.Output, bool, error) {
	img, err := raster.ToImage(r)
	if err != nil {
		return job.Output{}, false, nil
	}
	thumb := imaging.Fit(img, edge, edge, imaging.Lanczos)

	tr := raster.FromImage(thumb)
	if r.Model.NumBands == 1 || r.Model.NumBands == 3 {
		// Fit returns NRGBA; drop the synthetic bands.
		if r.Model.NumBands == 1 {
			tr, err = tr.Bands(0)
		} else {
			tr, err = tr.Bands(0, 1, 2)
		}
		if err != nil {
			return job.Output{}, false, err
		}
	}
	enc, err := reg.ResolveFormat("jpeg", tr.Model)
	if err != nil {
		return job.Output{}, false, err
	}
	out, err := writeOutput(outDir, name+".preview", "preview", tr, enc, quality)
	return out, err == nil, err
}
