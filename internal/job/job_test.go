package job

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReportRoundtrip(t *testing.T) {
	r := NewReport("test-profile")
	r.Type = "blend"
	r.AlphaMode = "translucent"
	r.BuildInfo = &BuildInfo{Workers: 4, TileWidth: 256, TileHeight: 128}
	r.Bounds = [4]int{-10, 0, 790, 600}
	r.Outputs = []Output{
		{Kind: "mosaic", Format: "png", Width: 800, Height: 600, Size: 5000, Hash: "abcd1234abcd1234", Path: "mosaic.800x600.abcd1234.png"},
		{Kind: "weights", Format: "mraw", Width: 800, Height: 600, Size: 700, Hash: "ffff0000ffff0000", Path: "mosaic.weights.mraw"},
	}
	r.Stats.Sources = 2

	dir := t.TempDir()
	path := filepath.Join(dir, ReportName)
	if err := WriteJSON(r, path); err != nil {
		t.Fatalf("write: %v", err)
	}

	r2, err := ReadReport(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if r2.Version != SupportedVersion {
		t.Errorf("version: got %d, want %d", r2.Version, SupportedVersion)
	}
	if r2.Profile != "test-profile" {
		t.Errorf("profile: got %q", r2.Profile)
	}
	if r2.BuildInfo == nil || r2.BuildInfo.TileHeight != 128 {
		t.Fatalf("build_info: got %+v", r2.BuildInfo)
	}
	if r2.Bounds != r.Bounds {
		t.Errorf("bounds: got %v", r2.Bounds)
	}
	if len(r2.Outputs) != 2 || r2.Outputs[1].Kind != "weights" {
		t.Errorf("outputs: got %+v", r2.Outputs)
	}
	if r2.Stats.OutputBytes != 5700 {
		t.Errorf("output_bytes: got %d, want 5700", r2.Stats.OutputBytes)
	}
}

func TestReportIgnoresUnknownFields(t *testing.T) {
	raw := `{
		"version": 1,
		"generated_at": "2025-01-01T00:00:00Z",
		"profile": "test",
		"future_field": "should be ignored",
		"build_info": { "workers": 8, "tile_width": 64, "tile_height": 64, "new_flag": true },
		"outputs": [],
		"stats": { "sources": 3, "new_stat": 42 }
	}`

	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal with unknown fields: %v", err)
	}
	if r.BuildInfo == nil || r.BuildInfo.Workers != 8 {
		t.Error("build_info not parsed correctly")
	}
	if r.Stats.Sources != 3 {
		t.Errorf("sources: got %d", r.Stats.Sources)
	}
}

func writeJob(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeJob(t, `{
		"type": "overlay",
		"sources": [
			{"path": "a.png", "alpha": "self", "threshold": [5]},
			{"path": "b.png", "origin": [10, 20], "roi": {"polygon": [[0,0],[4,0],[4,4]]}}
		],
		"background": [1, 2, 3],
		"layout": {"tile": [64, 32]}
	}`)
	j, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if j.Version != SupportedVersion {
		t.Errorf("missing version should default, got %d", j.Version)
	}
	if len(j.Sources) != 2 || j.Sources[1].Origin[1] != 20 {
		t.Errorf("sources: got %+v", j.Sources)
	}
	if j.Sources[0].Alpha != AlphaSelf {
		t.Errorf("alpha: got %q", j.Sources[0].Alpha)
	}
	if j.OutputName() != "mosaic" {
		t.Errorf("output name: got %q", j.OutputName())
	}
	if err := j.Validate(); err != nil {
		t.Errorf("validate: %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected read error")
	}
	if _, err := Load(writeJob(t, `{"sources": [`)); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		job  Job
		want string
	}{
		{"bad version", Job{Version: 2, Sources: []Source{{Path: "a"}}}, "version"},
		{"bad type", Job{Version: 1, Type: "max", Sources: []Source{{Path: "a"}}}, "unknown type"},
		{"missing path", Job{Version: 1, Sources: []Source{{}}}, "missing path"},
		{"empty threshold", Job{Version: 1, Sources: []Source{{Path: "a", Threshold: []float64{}}}}, "threshold"},
		{"empty background", Job{Version: 1, Background: []float64{}, Sources: []Source{{Path: "a"}}}, "background"},
		{"two rois", Job{Version: 1, Sources: []Source{{Path: "a", ROI: &ROI{Rect: &[4]int{0, 0, 1, 1}, Mask: "m.png"}}}}, "exactly one"},
		{"empty rect", Job{Version: 1, Sources: []Source{{Path: "a", ROI: &ROI{Rect: &[4]int{0, 0, 0, 1}}}}}, "empty roi"},
		{"no sources no layout", Job{Version: 1}, "no sources"},
		{"bad data type", Job{Version: 1, Sources: []Source{{Path: "a"}}, Layout: &Layout{DataType: "complex"}}, "data type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("got %v, want ErrInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidateZeroSourceLayout(t *testing.T) {
	j := Job{Version: 1, Layout: &Layout{
		Origin: &[2]int{0, 0}, Size: &[2]int{100, 100}, DataType: "byte", Bands: 3,
	}}
	if err := j.Validate(); err != nil {
		t.Errorf("complete layout rejected: %v", err)
	}
}
