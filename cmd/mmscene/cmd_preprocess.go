package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mmscene/internal/catalog"
	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/monitoring"
	"github.com/banshee-data/mmscene/internal/pipeline"
	"github.com/banshee-data/mmscene/internal/version"
)

var preprocessFlags struct {
	config     string
	raw        string
	images     string
	cache      string
	catalog    string
	metricsOut string
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Build or refresh the cached splits for the configured test area",
	RunE:  runPreprocess,
}

func init() {
	f := preprocessCmd.Flags()
	f.StringVar(&preprocessFlags.config, "config", "", "Dataset config (.json, .yaml); defaults apply when empty")
	f.StringVar(&preprocessFlags.raw, "raw", "", "Directory holding Area_<i>/<room>/<room>.txt (required)")
	f.StringVar(&preprocessFlags.images, "images", "", "Directory holding Area_<i>/images.json (defaults to --raw)")
	f.StringVar(&preprocessFlags.cache, "cache", "", "Cache root; artifacts go to <cache>/processed (required)")
	f.StringVar(&preprocessFlags.catalog, "catalog", "", "SQLite run catalog to record the run in")
	f.StringVar(&preprocessFlags.metricsOut, "metrics-out", "", "Write Prometheus metrics in textfile format to this path")

	_ = preprocessCmd.MarkFlagRequired("raw")
	_ = preprocessCmd.MarkFlagRequired("cache")
}

func runPreprocess(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(preprocessFlags.config)
	if err != nil {
		return err
	}
	images := preprocessFlags.images
	if images == "" {
		images = preprocessFlags.raw
	}

	w, h := cfg.GetImgRefSize()
	pre, err := pipeline.NewPreprocessor(cfg,
		pipeline.TextRoomReader{FS: os.DirFS(preprocessFlags.raw)},
		pipeline.ManifestImageExtractor{FS: os.DirFS(images), RefWidth: w, RefHeight: h},
		pipeline.EquirectProjector{MaxDepth: cfg.GetMaxDepth()},
		pipeline.Hooks{},
	)
	if err != nil {
		return err
	}

	var opts []pipeline.Option
	if preprocessFlags.catalog != "" {
		cat, err := openCatalog(preprocessFlags.catalog)
		if err != nil {
			return err
		}
		defer cat.Close()
		opts = append(opts, pipeline.WithRecorder(cat, pipeline.RunInfo{
			CacheDir: pipeline.ProcessedDir(preprocessFlags.cache),
			TestArea: cfg.GetTestArea(),
			Version:  version.Version,
		}))
	}

	manifest, runErr := pre.Run(cmd.Context(), fsutil.OSFileSystem{}, preprocessFlags.cache, opts...)
	if preprocessFlags.metricsOut != "" {
		if err := monitoring.WriteTextfile(preprocessFlags.metricsOut); err != nil {
			monitoring.Logf("failed to write metrics to %s: %v", preprocessFlags.metricsOut, err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("preprocess: %w", runErr)
	}

	out := cmd.OutOrStdout()
	names := make([]string, 0, len(manifest.Splits))
	for name := range manifest.Splits {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintf(out, "Test area: %d\n", manifest.TestArea)
	for _, name := range names {
		s := manifest.Splits[name]
		fmt.Fprintf(out, "  %-9s areas=%v points=%d entries=%d\n", name, s.Areas, s.Points, s.Entries)
	}
	return nil
}

func openCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := cat.MigrateUp(); err != nil {
		cat.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return cat, nil
}
