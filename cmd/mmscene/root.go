package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mmscene/internal/config"
	"github.com/banshee-data/mmscene/internal/logging"
	"github.com/banshee-data/mmscene/internal/monitoring"
	"github.com/banshee-data/mmscene/internal/version"
)

var rootFlags struct {
	verbose bool
	trace   bool
	quiet   bool
}

var rootCmd = &cobra.Command{
	Use:   "mmscene",
	Short: "Point cloud and panorama preprocessing and sphere sampling",
	Long: "mmscene fuses per-room scans into areas, maps them onto panoramic images,\n" +
		"caches train/val/test splits and samples spheres from them.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		setupLogging(cmd.ErrOrStderr())
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Log per-area diagnostics")
	f.BoolVar(&rootFlags.trace, "trace", false, "Log every drawn sample")
	f.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "Silence log output")

	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(sampleCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.Version = version.String()
}

func setupLogging(w io.Writer) {
	lw := logging.Writers{Ops: w}
	monitoring.SetLogWriter(w, logging.Prefix)
	if rootFlags.verbose || rootFlags.trace {
		lw.Diag = w
	}
	if rootFlags.trace {
		lw.Trace = w
	}
	if rootFlags.quiet {
		lw = logging.Writers{}
		monitoring.SetLogWriter(nil, "")
	}
	logging.SetWriters(lw)
}

// loadConfig reads path, or returns the built-in defaults when path is
// empty.
func loadConfig(path string) (*config.DatasetConfig, error) {
	if path == "" {
		return config.DefaultDatasetConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
