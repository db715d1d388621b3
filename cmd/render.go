package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/AnyUserName/mosaic-cli/internal/job"
	"github.com/AnyUserName/mosaic-cli/internal/pipeline"
	"github.com/AnyUserName/mosaic-cli/internal/profile"
	"github.com/spf13/cobra"
)

var (
	renderOutDir  string
	renderProfile string
	renderWorkers int
	renderFormat  string
	renderQuality int
	renderWeights bool
	renderPreview int
)

var renderCmd = &cobra.Command{
	Use:   "render <job.json>",
	Short: "Composite the sources of a job and write the result + report",
	Long: `Decodes every source referenced by the job (png, jpeg, gif, bmp, tiff,
webp, mraw), composites them tile by tile and writes the mosaic, an
optional weight map and preview, and a report file.

Output filenames are content-addressed: <name>.<w>x<h>.<hash>.ext`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutDir, "out", "o", "./mosaic_out", "output directory")
	renderCmd.Flags().StringVarP(&renderProfile, "profile", "p", "default", "render profile")
	renderCmd.Flags().IntVarP(&renderWorkers, "workers", "w", 0, "parallel workers (0 = NumCPU)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "", "output format (overrides profile)")
	renderCmd.Flags().IntVarP(&renderQuality, "quality", "q", 0, "quality 1-100 (0 = profile default)")
	renderCmd.Flags().BoolVar(&renderWeights, "weights", false, "also write the per-pixel weight map (mraw)")
	renderCmd.Flags().IntVar(&renderPreview, "preview", 0, "preview edge in pixels (0 = profile default)")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	start := time.Now()

	absJob, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolve job path: %w", err)
	}
	absOutput, err := filepath.Abs(renderOutDir)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	prof := profile.Get(renderProfile)
	logVerbose("job:     %s", absJob)
	logVerbose("output:  %s", absOutput)
	logVerbose("profile: %s (tile=%d, format=%s, quality=%d)", prof.Name, prof.TileSize, prof.Format, prof.Quality)

	// Ctrl-C abandons tiles that have not started.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := pipeline.New(pipeline.Config{
		JobPath:   absJob,
		OutputDir: absOutput,
		Profile:   prof,
		Workers:   renderWorkers,
		Verbose:   verbose,
		Format:    renderFormat,
		Quality:   renderQuality,
		Weights:   renderWeights,
		Preview:   renderPreview,
	})

	r, err := p.Run(ctx)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	reportPath := filepath.Join(absOutput, job.ReportName)
	if err := job.WriteJSON(r, reportPath); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	printRenderReport(r, time.Since(start))
	return nil
}

func printRenderReport(r *job.Report, elapsed time.Duration) {
	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════════╗")
	fmt.Println("║              mosaic render complete              ║")
	fmt.Println("╚══════════════════════════════════════════════════╝")
	fmt.Println()

	s := r.Stats
	fmt.Printf("  Type:        %s (%s alpha)\n", r.Type, r.AlphaMode)
	fmt.Printf("  Sources:     %d\n", s.Sources)
	fmt.Printf("  Bounds:      [%d,%d)-[%d,%d)  %s\n", r.Bounds[0], r.Bounds[1], r.Bounds[2], r.Bounds[3], r.Model)
	fmt.Printf("  Tiles:       %d\n", s.Tiles)
	fmt.Printf("  Coverage:    %s\n", coverage(s))
	fmt.Printf("  Input size:  %s\n", formatBytes(s.InputBytes))
	fmt.Printf("  Output size: %s\n", formatBytes(s.OutputBytes))
	fmt.Printf("  Time:        %s (composite %dms)\n", elapsed.Round(time.Millisecond), s.ElapsedMS)
	if r.BuildInfo != nil {
		fmt.Printf("  Workers:     %d  (tile %dx%d)\n", r.BuildInfo.Workers, r.BuildInfo.TileWidth, r.BuildInfo.TileHeight)
	}
	fmt.Println()

	for _, o := range r.Outputs {
		fmt.Printf("  %-8s %-5s %5dx%-5d %9s  %s\n", o.Kind, o.Format, o.Width, o.Height, formatBytes(o.Size), o.Path)
	}
	fmt.Println()
	fmt.Printf("  Report:      %s\n", job.ReportName)
	fmt.Println()
}

func coverage(s job.Stats) string {
	if s.Pixels == 0 {
		return "empty"
	}
	covered := s.Pixels - s.BackgroundPixels
	return fmt.Sprintf("%.1f%% (%d of %d pixels)", float64(covered)/float64(s.Pixels)*100, covered, s.Pixels)
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
