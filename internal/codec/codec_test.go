package codec

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

func TestResolveFormat(t *testing.T) {
	reg := NewRegistry()
	tests := []struct {
		name      string
		requested string
		model     raster.SampleModel
		want      string
	}{
		{"requested ok", "tif", raster.SampleModel{DataType: raster.Byte, NumBands: 3}, "tiff"},
		{"jpeg cannot hold alpha", "jpeg", raster.SampleModel{DataType: raster.Byte, NumBands: 4}, "png"},
		{"float falls back to mraw", "png", raster.SampleModel{DataType: raster.Float, NumBands: 1}, "mraw"},
		{"many bands", "png", raster.SampleModel{DataType: raster.Byte, NumBands: 7}, "mraw"},
		{"unknown format", "heic", raster.SampleModel{DataType: raster.UShort, NumBands: 1}, "png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := reg.ResolveFormat(tt.requested, tt.model)
			if err != nil {
				t.Fatal(err)
			}
			if enc.Format() != tt.want {
				t.Errorf("got %s, want %s", enc.Format(), tt.want)
			}
		})
	}
}

func TestRegistryListsBuiltins(t *testing.T) {
	reg := NewRegistry()
	for _, f := range []string{"png", "tiff", "jpeg", "bmp", "mraw"} {
		if reg.Get(f) == nil {
			t.Errorf("%s encoder missing", f)
		}
	}
	if reg.Get("JPG") == nil {
		t.Error("format lookup should normalize jpg")
	}
}

func TestEncodeDecodeFile(t *testing.T) {
	dir := t.TempDir()
	r := raster.New(image.Rect(0, 0, 3, 2), raster.SampleModel{DataType: raster.Byte, NumBands: 1})
	r.Set(2, 1, 0, 222)

	for _, enc := range []Encoder{&PNGEncoder{}, &TIFFEncoder{}, &BMPEncoder{}, &MRAWEncoder{}} {
		data, err := enc.Encode(r, 0)
		if err != nil {
			t.Fatalf("%s: encode: %v", enc.Format(), err)
		}
		path := filepath.Join(dir, "out."+enc.Extension())
		if err := os.WriteFile(path, data, 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := Decode(path)
		if err != nil {
			t.Fatalf("%s: decode: %v", enc.Format(), err)
		}
		if got.Rect.Dx() != 3 || got.Rect.Dy() != 2 {
			t.Errorf("%s: size %v", enc.Format(), got.Rect)
		}
		if v := got.At(2, 1, 0); v != 222 {
			t.Errorf("%s: sample got %v, want 222", enc.Format(), v)
		}
	}
}

func TestDecodeUnsupported(t *testing.T) {
	if _, err := Decode("scan.heic"); err == nil {
		t.Error("expected error for unknown extension")
	}
}

func TestFormatOf(t *testing.T) {
	if f := FormatOf("a/b.JPG"); f != "jpeg" {
		t.Errorf("got %q", f)
	}
}
