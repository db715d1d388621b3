package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/AnyUserName/mosaic-cli/internal/mosaic"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "mosaic",
	Short: "Composite overlapping rasters into one image",
	Long: `mosaic — stitches co-located source rasters into a single destination.

Each source contributes per pixel through an alpha mask, a region of
interest or a per-band threshold. Overlaps are blended by weight or
overlaid in source order; uncovered pixels get the background value.
Jobs are described in JSON and rendered tile by tile in parallel.`,
	Version: version,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			mosaic.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"mosaic %s (%s/%s, %s)\n",
		version, runtime.GOOS, runtime.GOARCH, runtime.Version(),
	))
}

// logVerbose prints a message only when --verbose is set.
func logVerbose(format string, args ...any) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[mosaic] "+format+"\n", args...)
	}
}
