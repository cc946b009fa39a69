package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StageDuration measures preprocessing stage wall time, labelled by
	// stage name and outcome (computed, loaded, failed).
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mmscene_stage_duration_seconds",
			Help:    "Duration of preprocessing stages in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		},
		[]string{"stage", "outcome"},
	)

	// ArtifactBytes is the size of the last artifact written or read per
	// stage.
	ArtifactBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mmscene_artifact_bytes",
			Help: "Size of the most recent stage artifact in bytes",
		},
		[]string{"stage"},
	)

	// InvalidatedArtifacts counts artifacts removed by the invalidation scan.
	InvalidatedArtifacts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mmscene_invalidated_artifacts_total",
			Help: "Stage artifacts removed because an upstream artifact was missing",
		},
	)

	// DatasetCenters is the number of sphere centres a loaded dataset can
	// draw from: candidates in random mode, grid centres in grid mode. It is
	// set once at load time.
	DatasetCenters = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mmscene_dataset_centers",
			Help: "Sphere centres available to a loaded dataset",
		},
		[]string{"split", "mode"},
	)
)

// ObserveStage records one stage execution.
func ObserveStage(stage, outcome string, d time.Duration, bytes int) {
	StageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
	if bytes > 0 {
		ArtifactBytes.WithLabelValues(stage).Set(float64(bytes))
	}
}

// WriteTextfile dumps every registered metric to path in the text
// exposition format, for collection by a node exporter textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
