package hasher

import (
	"bytes"
	"image"
	"testing"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

func TestContentHash(t *testing.T) {
	data := []byte("mosaic")
	h := ContentHash(data, 16)
	if len(h) != 16 {
		t.Fatalf("length: got %d", len(h))
	}
	if ContentHash(data, 8) != h[:8] {
		t.Error("truncation should be a prefix")
	}
	r, err := ContentHashReader(bytes.NewReader(data), 16)
	if err != nil {
		t.Fatal(err)
	}
	if r != h {
		t.Errorf("reader hash %s != %s", r, h)
	}
}

func TestRasterHash(t *testing.T) {
	m := raster.SampleModel{DataType: raster.Byte, NumBands: 1}
	a := raster.New(image.Rect(0, 0, 4, 4), m)
	b := raster.New(image.Rect(0, 0, 4, 4), m)
	if RasterHash(a, 16) != RasterHash(b, 16) {
		t.Fatal("identical rasters hash differently")
	}
	b.Set(3, 3, 0, 1)
	if RasterHash(a, 16) == RasterHash(b, 16) {
		t.Error("sample change not reflected")
	}
	if RasterHash(a, 16) == RasterHash(a.Translate(image.Pt(1, 0)), 16) {
		t.Error("origin change not reflected")
	}

	// A view hashes like a copy of the same region.
	big := raster.New(image.Rect(0, 0, 8, 8), m)
	big.Set(5, 5, 0, 9)
	sub := big.SubRaster(image.Rect(4, 4, 8, 8))
	cp := raster.New(sub.Rect, m)
	cp.CopyFrom(sub)
	if RasterHash(sub, 16) != RasterHash(cp, 16) {
		t.Error("view and copy hash differently")
	}
}
