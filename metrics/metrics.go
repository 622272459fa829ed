package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the pipeline metrics. It is private to the process so the
// textfile output contains only eigenimages series.
var Registry = prometheus.NewRegistry()

// Pipeline Prometheus metrics.
var (
	FoldersProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eigenimages",
			Name:      "folders_processed_total",
			Help:      "Folders run through the pipeline",
		},
		[]string{"status"}, // "ok" / "failed"
	)

	FolderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eigenimages",
			Name:      "folder_errors_total",
			Help:      "Folder failures by pipeline stage",
		},
		[]string{"stage"},
	)

	ImagesLoadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eigenimages",
			Name:      "images_loaded_total",
			Help:      "Images decoded into a corpus",
		},
	)

	ImagesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "eigenimages",
			Name:      "images_skipped_total",
			Help:      "Supported image files that failed to decode",
		},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eigenimages",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	SelectedComponents = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "eigenimages",
			Name:      "selected_components",
			Help:      "Components summed into the eigenimage",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		},
	)
)

var registerOnce sync.Once

// Register adds the pipeline metrics to Registry. Safe to call repeatedly.
func Register() {
	registerOnce.Do(func() {
		Registry.MustRegister(
			FoldersProcessedTotal,
			FolderErrorsTotal,
			ImagesLoadedTotal,
			ImagesSkippedTotal,
			StageDuration,
			SelectedComponents,
		)
	})
}

// WriteTextfile writes the registry in the text exposition format, for the
// node_exporter textfile collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	Register()
	return prometheus.WriteToTextfile(path, Registry)
}
