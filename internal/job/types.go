package job

// Job describes one mosaic to render. Paths are relative to the job file.
type Job struct {
	Version    int       `json:"version"`
	Type       string    `json:"type"` // "blend" (default) or "overlay"
	Sources    []Source  `json:"sources"`
	Background []float64 `json:"background,omitempty"`
	Layout     *Layout   `json:"layout,omitempty"`
	Output     string    `json:"output,omitempty"` // output base name, default "mosaic"
}

// Source is one input raster and its optional weighting inputs.
type Source struct {
	Path   string  `json:"path"`
	Origin *[2]int `json:"origin,omitempty"` // placement of the source's top-left pixel
	// Alpha is a mask file path, or AlphaSelf to split the source's last
	// band off as its mask.
	Alpha       string    `json:"alpha,omitempty"`
	AlphaOrigin *[2]int   `json:"alpha_origin,omitempty"` // defaults to Origin
	ROI         *ROI      `json:"roi,omitempty"`
	Threshold   []float64 `json:"threshold,omitempty"` // per band; short arrays replicate [0]
}

// AlphaSelf selects the source's own last band as its alpha mask.
const AlphaSelf = "self"

// ROI is a region of interest; exactly one field is set.
type ROI struct {
	Rect    *[4]int  `json:"rect,omitempty"`    // x0, y0, x1, y1 (exclusive)
	Polygon [][2]int `json:"polygon,omitempty"` // vertices, implicitly closed
	Mask    string   `json:"mask,omitempty"`    // image path; inside where alpha/gray > 0
}

// Layout overrides the destination geometry.
type Layout struct {
	Origin   *[2]int `json:"origin,omitempty"`
	Size     *[2]int `json:"size,omitempty"`
	Tile     *[2]int `json:"tile,omitempty"`
	DataType string  `json:"data_type,omitempty"`
	Bands    int     `json:"bands,omitempty"`
}

// Report is written next to the outputs of a render.
type Report struct {
	Version     int        `json:"version"`
	GeneratedAt string     `json:"generated_at"`
	Profile     string     `json:"profile"`
	Type        string     `json:"type"`
	AlphaMode   string     `json:"alpha_mode"`
	BuildInfo   *BuildInfo `json:"build_info,omitempty"`
	Bounds      [4]int     `json:"bounds"` // x0, y0, x1, y1
	Model       string     `json:"model"`
	Outputs     []Output   `json:"outputs"`
	Stats       Stats      `json:"stats"`
}

// BuildInfo captures render-time parameters for diagnostics.
type BuildInfo struct {
	Workers    int `json:"workers"`
	TileWidth  int `json:"tile_width"`
	TileHeight int `json:"tile_height"`
}

// Output is one file written by a render.
type Output struct {
	Kind   string `json:"kind"`   // "mosaic", "weights", "preview"
	Format string `json:"format"` // "png", "tiff", "mraw", ...
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"` // bytes on disk
	Hash   string `json:"hash"` // first 16 hex chars of xxhash64 of the file
	Path   string `json:"path"` // relative to the report
}

// Stats aggregates render metrics.
type Stats struct {
	Sources          int    `json:"sources"`
	InputBytes       int64  `json:"input_bytes"`
	OutputBytes      int64  `json:"output_bytes"`
	Tiles            int    `json:"tiles"`
	Pixels           int    `json:"pixels"`
	BackgroundPixels int    `json:"background_pixels"`
	RasterHash       string `json:"raster_hash"` // xxhash64 of the composited samples
	ElapsedMS        int64  `json:"elapsed_ms"`
}

// SupportedVersion is the current schema version of jobs and reports.
const SupportedVersion = 1

// ReportName is the report file name inside an output directory.
const ReportName = "mosaic.report.json"
