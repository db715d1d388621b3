package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/AnyUserName/mosaic-cli/internal/hasher"
	"github.com/AnyUserName/mosaic-cli/internal/job"
	"github.com/AnyUserName/mosaic-cli/internal/pipeline"
	"github.com/AnyUserName/mosaic-cli/internal/profile"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <job.json | out_dir | report>",
	Short: "Check a job can be rendered, or that a render's outputs are intact",
	Long: `Given a job file, loads it, decodes every source and resolves the
destination without writing anything.

Given an output directory or report, checks every listed output exists
with the recorded size and content hash.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, args []string) error {
	path := args[0]
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return validateReport(filepath.Join(path, job.ReportName))
	}
	if filepath.Base(path) == job.ReportName {
		return validateReport(path)
	}
	return validateJob(path)
}

func validateJob(path string) error {
	p := pipeline.New(pipeline.Config{
		JobPath: path,
		Profile: profile.Get("default"),
		Verbose: verbose,
	})
	prep, err := p.Prepare(context.Background())
	if err != nil {
		fmt.Printf("  ✗ Job is invalid:\n    • %v\n", err)
		return fmt.Errorf("validation failed")
	}
	dest := prep.Op.Destination()
	nx, ny := dest.NumTiles()
	fmt.Println("  ✓ Job is valid")
	fmt.Printf("  ✓ %d sources, %v %s, %d tiles, %s alpha\n",
		len(prep.Inputs), dest.Bounds, dest.Model, nx*ny, prep.Op.AlphaMode())
	return nil
}

func validateReport(path string) error {
	r, err := job.ReadReport(path)
	if err != nil {
		return err
	}
	errs := checkReport(r, filepath.Dir(path))
	if len(errs) == 0 {
		fmt.Println("  ✓ Report is valid")
		fmt.Printf("  ✓ %d outputs, all files present and intact\n", len(r.Outputs))
		return nil
	}

	fmt.Printf("  ✗ Report has %d error(s):\n", len(errs))
	for _, e := range errs {
		fmt.Printf("    • %s\n", e)
	}
	return fmt.Errorf("validation failed with %d errors", len(errs))
}

func checkReport(r *job.Report, baseDir string) []string {
	var errs []string

	if r.Version != job.SupportedVersion {
		errs = append(errs, fmt.Sprintf("unsupported report version: %d", r.Version))
	}
	if r.Bounds[2] <= r.Bounds[0] || r.Bounds[3] <= r.Bounds[1] {
		errs = append(errs, fmt.Sprintf("empty bounds %v", r.Bounds))
	}
	if len(r.Outputs) == 0 {
		errs = append(errs, "no outputs")
	}

	seen := map[string]bool{}
	var total int64
	for i, o := range r.Outputs {
		if o.Path == "" {
			errs = append(errs, fmt.Sprintf("output[%d]: missing path", i))
			continue
		}
		if seen[o.Path] {
			errs = append(errs, fmt.Sprintf("output[%d]: duplicate path %q", i, o.Path))
		}
		seen[o.Path] = true
		total += o.Size

		f, err := os.Open(filepath.Join(baseDir, o.Path))
		if err != nil {
			errs = append(errs, fmt.Sprintf("output[%d]: file not found: %s", i, o.Path))
			continue
		}
		info, _ := f.Stat()
		sum, err := hasher.ContentHashReader(f, len(o.Hash))
		f.Close()
		switch {
		case err != nil:
			errs = append(errs, fmt.Sprintf("output[%d]: read %s: %v", i, o.Path, err))
		case info != nil && info.Size() != o.Size:
			errs = append(errs, fmt.Sprintf("output[%d]: size mismatch: report=%d, disk=%d", i, o.Size, info.Size()))
		case sum != o.Hash:
			errs = append(errs, fmt.Sprintf("output[%d]: hash mismatch: report=%s, disk=%s", i, o.Hash, sum))
		}
	}
	if r.Stats.OutputBytes != total {
		errs = append(errs, fmt.Sprintf("stats.output_bytes mismatch: %d != %d", r.Stats.OutputBytes, total))
	}
	if r.Stats.BackgroundPixels > r.Stats.Pixels {
		errs = append(errs, fmt.Sprintf("stats.background_pixels %d exceeds pixels %d", r.Stats.BackgroundPixels, r.Stats.Pixels))
	}
	return errs
}
