package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/AnyUserName/mosaic-cli/internal/job"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <out_dir_or_report>",
	Short: "Display statistics for a rendered mosaic",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]

	// If path is a directory, look for the report inside.
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		path = filepath.Join(path, job.ReportName)
	}

	r, err := job.ReadReport(path)
	if err != nil {
		return err
	}
	printStats(r)
	return nil
}

func printStats(r *job.Report) {
	fmt.Println()
	fmt.Printf("  Report version:   %d\n", r.Version)
	fmt.Printf("  Generated:        %s\n", r.GeneratedAt)
	fmt.Printf("  Profile:          %s\n", r.Profile)
	fmt.Printf("  Type:             %s (%s alpha)\n", r.Type, r.AlphaMode)
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:          %d\n", r.BuildInfo.Workers)
		fmt.Printf("  Tile:             %dx%d\n", r.BuildInfo.TileWidth, r.BuildInfo.TileHeight)
	}
	fmt.Println()

	s := r.Stats
	w, h := r.Bounds[2]-r.Bounds[0], r.Bounds[3]-r.Bounds[1]
	fmt.Printf("  Destination:      %dx%d at (%d,%d)  %s\n", w, h, r.Bounds[0], r.Bounds[1], r.Model)
	fmt.Printf("  Sources:          %d\n", s.Sources)
	fmt.Printf("  Tiles:            %d\n", s.Tiles)
	fmt.Printf("  Coverage:         %s\n", coverage(s))
	fmt.Printf("  Raster hash:      %s\n", s.RasterHash)
	fmt.Printf("  Composite time:   %dms\n", s.ElapsedMS)
	if s.ElapsedMS > 0 {
		mpps := float64(s.Pixels) / float64(s.ElapsedMS) / 1000
		fmt.Printf("  Throughput:       %.2f Mpx/s\n", mpps)
	}
	fmt.Printf("  Input size:       %s\n", formatBytes(s.InputBytes))
	fmt.Printf("  Output size:      %s\n", formatBytes(s.OutputBytes))
	fmt.Println()

	// Per-kind breakdown.
	kinds := map[string]int64{}
	for _, o := range r.Outputs {
		kinds[o.Kind] += o.Size
	}
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	fmt.Println("  Outputs:")
	for _, k := range names {
		fmt.Printf("    %-8s  %s\n", k, formatBytes(kinds[k]))
	}

	// Warnings.
	var warnings []string
	if s.Pixels > 0 && s.BackgroundPixels == s.Pixels && s.Sources > 0 {
		warnings = append(warnings, "no source contributes to any pixel")
	}
	for _, o := range r.Outputs {
		if o.Kind == "mosaic" && o.Format == "mraw" {
			warnings = append(warnings, fmt.Sprintf("%s model stored as mraw, not viewable as an image", r.Model))
		}
	}
	if len(warnings) > 0 {
		fmt.Println()
		fmt.Printf("  Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Printf("    ⚠ %s\n", w)
		}
	}
	fmt.Println()
}
