package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AnyUserName/mosaic-cli/internal/codec"
	"github.com/AnyUserName/mosaic-cli/internal/job"
)

// Input represents a file referenced by a job.
type Input struct {
	// AbsPath is the absolute path to the file on disk.
	AbsPath string
	// RelPath is the path as written in the job.
	RelPath string
	// Format is the normalized source format (png, jpeg, mraw, ...).
	Format string
	// Size is the file size in bytes.
	Size int64
}

// SourceFiles groups the files of one job source.
type SourceFiles struct {
	Image Input
	Alpha *Input // nil when absent or job.AlphaSelf
	Mask  *Input // ROI mask image
}

// ResolveInputs locates every file of j relative to baseDir. All missing or
// unsupported files are reported together.
func ResolveInputs(baseDir string, j *job.Job) ([]SourceFiles, error) {
	var (
		files = make([]SourceFiles, len(j.Sources))
		errs  []string
	)
	resolve := func(rel string) *Input {
		in, err := stat(baseDir, rel)
		if err != nil {
			errs = append(errs, err.Error())
			return nil
		}
		return in
	}

	for i, s := range j.Sources {
		if in := resolve(s.Path); in != nil {
			files[i].Image = *in
		}
		if s.Alpha != "" && s.Alpha != job.AlphaSelf {
			files[i].Alpha = resolve(s.Alpha)
		}
		if s.ROI != nil && s.ROI.Mask != "" {
			files[i].Mask = resolve(s.ROI.Mask)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%d input error(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return files, nil
}

func stat(baseDir, rel string) (*Input, error) {
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, rel)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !codec.Extensions[ext] {
		return nil, fmt.Errorf("%s: unsupported format %q", rel, ext)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%s: file not found", rel)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: is a directory", rel)
	}
	return &Input{
		AbsPath: path,
		RelPath: filepath.ToSlash(rel),
		Format:  codec.FormatOf(path),
		Size:    info.Size(),
	}, nil
}
