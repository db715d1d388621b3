package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AnyUserName/mosaic-cli/internal/mosaic"
	"github.com/AnyUserName/mosaic-cli/internal/profile"
	"github.com/disintegration/imaging"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func uniformGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func writeJobFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "job.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func grayAt(t *testing.T, path string, x, y int) uint8 {
	t.Helper()
	img, err := imaging.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
}

func TestRunBlend(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), uniformGray(4, 4, 100))
	writePNG(t, filepath.Join(dir, "b.png"), uniformGray(4, 4, 234))
	jobPath := writeJobFile(t, dir, `{
		"sources": [
			{"path": "a.png"},
			{"path": "b.png", "origin": [2, 0]}
		]
	}`)
	outDir := filepath.Join(dir, "out")

	p := New(Config{
		JobPath:   jobPath,
		OutputDir: outDir,
		Profile:   profile.Get("default"),
		Workers:   2,
		Weights:   true,
	})
	r, err := p.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if r.Type != "blend" || r.AlphaMode != "bitmask" {
		t.Errorf("type/alpha: got %s/%s", r.Type, r.AlphaMode)
	}
	if r.Bounds != [4]int{0, 0, 6, 4} {
		t.Errorf("bounds: got %v", r.Bounds)
	}
	if r.BuildInfo.TileWidth != 6 || r.BuildInfo.TileHeight != 4 {
		t.Errorf("tile should shrink to the destination, got %dx%d", r.BuildInfo.TileWidth, r.BuildInfo.TileHeight)
	}
	if r.Stats.Sources != 2 || r.Stats.Pixels != 24 || r.Stats.BackgroundPixels != 0 {
		t.Errorf("stats: got %+v", r.Stats)
	}
	if r.Stats.RasterHash == "" || r.Stats.InputBytes == 0 {
		t.Errorf("stats: got %+v", r.Stats)
	}
	if len(r.Outputs) != 2 || r.Outputs[0].Kind != "mosaic" || r.Outputs[1].Kind != "weights" {
		t.Fatalf("outputs: got %+v", r.Outputs)
	}

	out := r.Outputs[0]
	if !strings.HasPrefix(out.Path, "mosaic.6x4.") || !strings.HasSuffix(out.Path, ".png") {
		t.Errorf("output name: got %s", out.Path)
	}
	path := filepath.Join(outDir, out.Path)
	if got := grayAt(t, path, 0, 0); got != 100 {
		t.Errorf("a only: got %d, want 100", got)
	}
	if got := grayAt(t, path, 2, 1); got != 167 {
		t.Errorf("overlap: got %d, want 167", got)
	}
	if got := grayAt(t, path, 5, 3); got != 234 {
		t.Errorf("b only: got %d, want 234", got)
	}
	if _, err := os.Stat(filepath.Join(outDir, r.Outputs[1].Path)); err != nil {
		t.Errorf("weights file: %v", err)
	}
}

func TestRunDeterministicHash(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), uniformGray(8, 8, 50))
	writePNG(t, filepath.Join(dir, "b.png"), uniformGray(8, 8, 150))
	jobPath := writeJobFile(t, dir, `{
		"sources": [{"path": "a.png"}, {"path": "b.png", "origin": [3, 3]}],
		"layout": {"tile": [3, 2]}
	}`)

	var hashes []string
	for _, workers := range []int{1, 4} {
		p := New(Config{JobPath: jobPath, OutputDir: t.TempDir(), Profile: profile.Get("default"), Workers: workers})
		r, err := p.Run(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		hashes = append(hashes, r.Stats.RasterHash)
	}
	if hashes[0] != hashes[1] {
		t.Errorf("worker count changed the result: %s vs %s", hashes[0], hashes[1])
	}
}

func TestRunOverlayAlphaSelf(t *testing.T) {
	dir := t.TempDir()
	a := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	a.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	a.SetNRGBA(1, 0, color.NRGBA{R: 255, A: 0})
	b := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	b.SetNRGBA(0, 0, color.NRGBA{G: 255, A: 255})
	b.SetNRGBA(1, 0, color.NRGBA{G: 255, A: 128})
	writePNG(t, filepath.Join(dir, "a.png"), a)
	writePNG(t, filepath.Join(dir, "b.png"), b)
	jobPath := writeJobFile(t, dir, `{
		"type": "overlay",
		"sources": [
			{"path": "a.png", "alpha": "self"},
			{"path": "b.png", "alpha": "self"}
		],
		"output": "over"
	}`)
	outDir := t.TempDir()

	r, err := New(Config{JobPath: jobPath, OutputDir: outDir, Profile: profile.Get("default")}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(r.Model, "byte×3") {
		t.Errorf("alpha band should be split off, model %s", r.Model)
	}
	img, err := imaging.Open(filepath.Join(outDir, r.Outputs[0].Path))
	if err != nil {
		t.Fatal(err)
	}
	if c := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); c.R != 255 || c.G != 0 {
		t.Errorf("first opaque source should win: got %+v", c)
	}
	if c := color.NRGBAModel.Convert(img.At(1, 0)).(color.NRGBA); c.R != 0 || c.G != 255 {
		t.Errorf("transparent pixel should fall through: got %+v", c)
	}
}

func TestRunZeroSources(t *testing.T) {
	dir := t.TempDir()
	jobPath := writeJobFile(t, dir, `{
		"sources": [],
		"background": [10, 20, 30],
		"layout": {"origin": [0, 0], "size": [100, 100], "data_type": "byte", "bands": 3}
	}`)
	outDir := t.TempDir()

	r, err := New(Config{JobPath: jobPath, OutputDir: outDir, Profile: profile.Get("default"), Preview: 16}).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Stats.BackgroundPixels != 10000 {
		t.Errorf("background pixels: got %d", r.Stats.BackgroundPixels)
	}
	if len(r.Outputs) != 2 || r.Outputs[1].Kind != "preview" {
		t.Fatalf("outputs: got %+v", r.Outputs)
	}
	if r.Outputs[1].Width != 16 || r.Outputs[1].Height != 16 {
		t.Errorf("preview size: got %dx%d", r.Outputs[1].Width, r.Outputs[1].Height)
	}
	img, err := imaging.Open(filepath.Join(outDir, r.Outputs[0].Path))
	if err != nil {
		t.Fatal(err)
	}
	if c := color.NRGBAModel.Convert(img.At(50, 50)).(color.NRGBA); c.R != 10 || c.G != 20 || c.B != 30 {
		t.Errorf("fill: got %+v", c)
	}
}

func TestPrepareErrors(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "gray.png"), uniformGray(2, 2, 1))
	writePNG(t, filepath.Join(dir, "color.png"), image.NewNRGBA(image.Rect(0, 0, 2, 2)))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing file", `{"sources": [{"path": "nope.png"}]}`, "file not found"},
		{"unsupported", `{"sources": [{"path": "job.json"}]}`, "unsupported format"},
		{"invalid job", `{"type": "max", "sources": [{"path": "gray.png"}]}`, "unknown type"},
		{"incompatible", `{"sources": [{"path": "gray.png"}, {"path": "color.png"}]}`, "incompatible"},
		{"self alpha on gray", `{"sources": [{"path": "gray.png", "alpha": "self"}]}`, "at least 2 bands"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jobPath := writeJobFile(t, dir, tt.body)
			_, err := New(Config{JobPath: jobPath, Profile: profile.Get("default")}).Prepare(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestPrepareROIAndBands(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	mask := image.NewGray(image.Rect(0, 0, 4, 4))
	mask.SetGray(1, 1, color.Gray{Y: 255})
	writePNG(t, filepath.Join(dir, "mask.png"), mask)
	jobPath := writeJobFile(t, dir, `{
		"sources": [
			{"path": "a.png", "origin": [10, 10], "roi": {"mask": "mask.png"}},
			{"path": "a.png", "roi": {"rect": [0, 0, 2, 2]}}
		],
		"layout": {"bands": 2}
	}`)

	prep, err := New(Config{JobPath: jobPath, Profile: profile.Get("default")}).Prepare(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := prep.Op.SampleModel().NumBands; got != 2 {
		t.Errorf("bands: got %d, want 2", got)
	}
	m := prep.Mosaic.ROI[0]
	if m == nil || !m.Contains(11, 11) || m.Contains(1, 1) {
		t.Error("mask roi should be anchored at the source origin")
	}
	if r := prep.Mosaic.ROI[1]; r == nil || !r.Contains(1, 1) || r.Contains(2, 2) {
		t.Error("rect roi membership wrong")
	}
	if b := prep.Op.Bounds(); b != image.Rect(0, 0, 14, 14) {
		t.Errorf("bounds: got %v", b)
	}
}

func TestFillTileKeepsJobDimension(t *testing.T) {
	prof := profile.Get("default")
	tests := []struct {
		name   string
		layout mosaic.Layout
		w, h   int
		tw, th int
	}{
		{"both open", mosaic.Layout{}, 1000, 1000, 256, 256},
		{"width given", mosaic.Layout{TileWidth: 64}, 1000, 1000, 64, 256},
		{"height given", mosaic.Layout{TileHeight: 32}, 100, 1000, 100, 32},
		{"both given", mosaic.Layout{TileWidth: 8, TileHeight: 16}, 1000, 1000, 8, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := tt.layout
			fillTile(&l, prof, tt.w, tt.h)
			if l.TileWidth != tt.tw || l.TileHeight != tt.th {
				t.Errorf("got %dx%d, want %dx%d", l.TileWidth, l.TileHeight, tt.tw, tt.th)
			}
		})
	}
}
