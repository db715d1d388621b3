package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AnyUserName/mosaic-cli/internal/raster"
)

// ErrInvalid wraps every structural problem found by Validate.
var ErrInvalid = errors.New("invalid job")

// Load reads and parses a job file. Missing version means 1.
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job: %w", err)
	}
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("parse job: %w", err)
	}
	if j.Version == 0 {
		j.Version = SupportedVersion
	}
	return &j, nil
}

// OutputName returns the output base name.
func (j *Job) OutputName() string {
	if j.Output == "" {
		return "mosaic"
	}
	return j.Output
}

// Validate checks the job for structural problems. It does not touch the
// referenced files. All problems are reported, joined.
func (j *Job) Validate() error {
	var errs []string

	if j.Version != SupportedVersion {
		errs = append(errs, fmt.Sprintf("unsupported job version: %d", j.Version))
	}
	switch strings.ToLower(j.Type) {
	case "", "blend", "overlay":
	default:
		errs = append(errs, fmt.Sprintf("unknown type %q", j.Type))
	}
	if j.Background != nil && len(j.Background) == 0 {
		errs = append(errs, "background must not be empty")
	}

	for i, s := range j.Sources {
		if s.Path == "" {
			errs = append(errs, fmt.Sprintf("source[%d]: missing path", i))
		}
		if s.Threshold != nil && len(s.Threshold) == 0 {
			errs = append(errs, fmt.Sprintf("source[%d]: threshold must not be empty", i))
		}
		if s.AlphaOrigin != nil && s.Alpha == "" {
			errs = append(errs, fmt.Sprintf("source[%d]: alpha_origin without alpha", i))
		}
		if s.ROI != nil {
			set := 0
			if s.ROI.Rect != nil {
				set++
				if r := s.ROI.Rect; r[2] <= r[0] || r[3] <= r[1] {
					errs = append(errs, fmt.Sprintf("source[%d]: empty roi rect %v", i, *r))
				}
			}
			if s.ROI.Polygon != nil {
				set++
				if len(s.ROI.Polygon) < 3 {
					errs = append(errs, fmt.Sprintf("source[%d]: roi polygon needs 3 vertices", i))
				}
			}
			if s.ROI.Mask != "" {
				set++
			}
			if set != 1 {
				errs = append(errs, fmt.Sprintf("source[%d]: roi must set exactly one of rect, polygon, mask", i))
			}
		}
	}

	if l := j.Layout; l != nil {
		if l.Size != nil && (l.Size[0] <= 0 || l.Size[1] <= 0) {
			errs = append(errs, fmt.Sprintf("layout: invalid size %dx%d", l.Size[0], l.Size[1]))
		}
		if l.Tile != nil && (l.Tile[0] <= 0 || l.Tile[1] <= 0) {
			errs = append(errs, fmt.Sprintf("layout: invalid tile %dx%d", l.Tile[0], l.Tile[1]))
		}
		if l.DataType != "" {
			if _, err := raster.ParseDataType(l.DataType); err != nil {
				errs = append(errs, "layout: "+err.Error())
			}
		}
		if l.Bands < 0 {
			errs = append(errs, fmt.Sprintf("layout: invalid bands %d", l.Bands))
		}
	}
	if len(j.Sources) == 0 {
		l := j.Layout
		if l == nil || l.Origin == nil || l.Size == nil || l.DataType == "" || l.Bands == 0 {
			errs = append(errs, "no sources: layout needs origin, size, data_type and bands")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(errs, "; "))
	}
	return nil
}

// NewReport creates an empty report with defaults.
func NewReport(profileName string) *Report {
	return &Report{
		Version:     SupportedVersion,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Profile:     profileName,
	}
}

// ComputeStats recalculates output totals from the output list.
func (r *Report) ComputeStats() {
	r.Stats.OutputBytes = 0
	for _, o := range r.Outputs {
		r.Stats.OutputBytes += o.Size
	}
}

// WriteJSON serializes the report to a JSON file.
func WriteJSON(r *Report, path string) error {
	r.ComputeStats()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

// ReadReport parses a report file.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}
