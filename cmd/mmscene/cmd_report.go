package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/banshee-data/mmscene/internal/config"
	"github.com/banshee-data/mmscene/internal/dataset"
	"github.com/banshee-data/mmscene/internal/fsutil"
	"github.com/banshee-data/mmscene/internal/pointcloud"
	"github.com/banshee-data/mmscene/internal/report"
	"github.com/banshee-data/mmscene/internal/security"
)

var reportFlags struct {
	config string
	cache  string
	split  string
	out    string
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write label balance charts for a cached split",
	Long: "report writes <split>_labels.png and <split>_weights.html to --out.\n" +
		"Random-mode splits chart the candidate table and the sampler weights;\n" +
		"grid-mode splits chart the labels nearest to each grid centre.",
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.config, "config", "", "Dataset config (.json, .yaml); defaults apply when empty")
	f.StringVar(&reportFlags.cache, "cache", "", "Cache root passed to preprocess (required)")
	f.StringVar(&reportFlags.split, "split", pointcloud.SplitTrain, "Split to report on")
	f.StringVar(&reportFlags.out, "out", "", "Output directory (required)")

	_ = reportCmd.MarkFlagRequired("cache")
	_ = reportCmd.MarkFlagRequired("out")
}

func runReport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(reportFlags.config)
	if err != nil {
		return err
	}
	fsys := fsutil.OSFileSystem{}
	d, err := dataset.Open(cmd.Context(), fsys, reportFlags.cache, cfg, reportFlags.split)
	if err != nil {
		return err
	}
	counts, weights, err := labelStats(d)
	if err != nil {
		return err
	}
	labels := make([]int, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	if err := fsys.MkdirAll(reportFlags.out, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	base := security.SanitizeFilename(reportFlags.split)
	pngPath := filepath.Join(reportFlags.out, base+"_labels.png")
	if err := report.LabelHistogram(pngPath, counts, weights); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.WeightsHTML(&buf, labels, counts, weights); err != nil {
		return err
	}
	htmlPath := filepath.Join(reportFlags.out, base+"_weights.html")
	if err := fsutil.WriteFileAtomic(fsys, htmlPath, buf.Bytes(), 0644); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nWrote %s\n", pngPath, htmlPath)
	return nil
}

// labelStats returns the per-label counts to chart. Grid datasets have no
// sampler weights and count the label nearest each centre instead.
func labelStats(d *dataset.Dataset) (map[int]int, map[int]float64, error) {
	if d.Mode() == config.ModeRandom {
		return d.LabelCounts(), d.LabelWeights(), nil
	}
	centre, err := d.CenterLabels()
	if err != nil {
		return nil, nil, err
	}
	counts := make(map[int]int)
	for _, l := range centre {
		counts[l]++
	}
	return counts, nil, nil
}
