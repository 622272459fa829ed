// Package pipeline runs the eigenimage computation over one folder.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"eigenimages/eigen"
	"eigenimages/exporter"
	"eigenimages/imageprocessor"
	"eigenimages/logging"
	"eigenimages/metrics"
	"eigenimages/pca"
	"eigenimages/types"

	"go.uber.org/zap"
)

// Pipeline stages, as reported in FolderError.Stage
const (
	StageLoad   = "load"
	StagePCA    = "pca"
	StageSelect = "select"
	StageScore  = "score"
	StageExport = "export"
)

// Options configures one folder run
type Options struct {
	Folder       string
	StaticResize bool    // 100x100 working shape; otherwise 10% of the first image
	Components   int     // component budget, pca.DefaultComponents when zero
	Threshold    float64 // cumulative variance threshold, eigen.DefaultThreshold when zero
	OutputPrefix string  // artifacts are written to <prefix>.csv, .png and _non_neg.png
}

// Result is the outcome of a successful folder run
type Result struct {
	Folder             string
	ImageCount         int
	Skipped            int
	Original           types.Shape
	Working            types.Shape
	ComponentBudget    int
	SelectedComponents int
	ExplainedVariance  float64
	Scores             types.ScorePair
	Artifacts          exporter.Artifacts
	Duration           time.Duration
}

// FolderError reports the stage at which a folder run failed
type FolderError struct {
	Folder string
	Stage  string
	Err    error
}

func (e *FolderError) Error() string {
	return fmt.Sprintf("%s: %s stage: %v", e.Folder, e.Stage, e.Err)
}

func (e *FolderError) Unwrap() error {
	return e.Err
}

// Record converts a result into a run ledger entry
func (r *Result) Record(prefix string) types.FolderResult {
	return types.FolderResult{
		FolderPath:         r.Folder,
		FolderName:         filepath.Base(r.Folder),
		OutputPrefix:       prefix,
		ImageCount:         r.ImageCount,
		Original:           r.Original,
		Working:            r.Working,
		ComponentBudget:    r.ComponentBudget,
		SelectedComponents: r.SelectedComponents,
		ExplainedVariance:  r.ExplainedVariance,
		Scores:             r.Scores,
		CSVPath:            r.Artifacts.CSV,
		ImagePath:          r.Artifacts.Image,
		NonNegImagePath:    r.Artifacts.NonNegImage,
		Status:             types.StatusOK,
		DurationMs:         r.Duration.Milliseconds(),
		ProcessedAt:        time.Now().Format(time.RFC3339),
	}
}

// FailedRecord builds the run ledger entry for a failed folder run
func FailedRecord(opts Options, err error, elapsed time.Duration) types.FolderResult {
	return types.FolderResult{
		FolderPath:      opts.Folder,
		FolderName:      filepath.Base(opts.Folder),
		OutputPrefix:    opts.OutputPrefix,
		ComponentBudget: opts.withDefaults().Components,
		Status:          types.StatusFailed,
		Error:           err.Error(),
		DurationMs:      elapsed.Milliseconds(),
		ProcessedAt:     time.Now().Format(time.RFC3339),
	}
}

func (o Options) withDefaults() Options {
	if o.Components == 0 {
		o.Components = pca.DefaultComponents
	}
	if o.Threshold == 0 {
		o.Threshold = eigen.DefaultThreshold
	}
	return o
}

// Run loads the folder, fits the decomposition, composes and scores the
// eigenimage and writes its artifacts. The context is only checked before
// the run starts.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	if opts.OutputPrefix == "" {
		return nil, fmt.Errorf("output prefix is required")
	}

	log := logging.L().With(zap.String("folder", opts.Folder))
	start := time.Now()

	fail := func(stage string, err error) (*Result, error) {
		metrics.FolderErrorsTotal.WithLabelValues(stage).Inc()
		metrics.FoldersProcessedTotal.WithLabelValues(types.StatusFailed).Inc()
		log.Warn("stage failed", zap.String("stage", stage), zap.Error(err))
		return nil, &FolderError{Folder: opts.Folder, Stage: stage, Err: err}
	}

	policy := imageprocessor.PolicyFromFlag(opts.StaticResize)
	stageStart := time.Now()
	corpus, err := imageprocessor.LoadCorpus(opts.Folder, policy)
	if err != nil {
		return fail(StageLoad, err)
	}
	observe(StageLoad, stageStart)
	log.Info("corpus loaded",
		zap.Int("images", corpus.Len()),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Stringer("policy", policy),
		zap.Stringer("original", corpus.Original),
		zap.Stringer("working", corpus.Working),
	)

	stageStart = time.Now()
	set, err := pca.Fit(corpus.Matrix, opts.Components)
	if err != nil {
		return fail(StagePCA, err)
	}
	observe(StagePCA, stageStart)
	log.Debug("components fitted", zap.Int("components", set.Len()), zap.Float64s("ratios", set.Ratios))

	stageStart = time.Now()
	sel, err := eigen.Compose(set, opts.Threshold)
	if err != nil {
		return fail(StageSelect, err)
	}
	observe(StageSelect, stageStart)
	metrics.SelectedComponents.Observe(float64(sel.Count))
	log.Info("components selected",
		zap.Int("selected", sel.Count),
		zap.Float64("explained_variance", sel.ExplainedVariance),
		zap.Float64("threshold", opts.Threshold),
	)

	stageStart = time.Now()
	scores, err := eigen.Score(sel.Composite)
	if err != nil {
		return fail(StageScore, err)
	}
	observe(StageScore, stageStart)

	stageStart = time.Now()
	artifacts, err := exporter.Export(opts.OutputPrefix, sel.Composite, eigen.PositiveOnly(sel.Composite),
		scores, corpus.Working, corpus.Original)
	if err != nil {
		return fail(StageExport, err)
	}
	observe(StageExport, stageStart)

	result := &Result{
		Folder:             opts.Folder,
		ImageCount:         corpus.Len(),
		Skipped:            len(corpus.Skipped),
		Original:           corpus.Original,
		Working:            corpus.Working,
		ComponentBudget:    opts.Components,
		SelectedComponents: sel.Count,
		ExplainedVariance:  sel.ExplainedVariance,
		Scores:             scores,
		Artifacts:          artifacts,
		Duration:           time.Since(start),
	}

	metrics.FoldersProcessedTotal.WithLabelValues(types.StatusOK).Inc()
	log.Info("eigenimage written",
		zap.Float64("score_all", scores.All),
		zap.Float64("score_non_negative", scores.NonNegative),
		zap.String("csv", artifacts.CSV),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

func observe(stage string, start time.Time) {
	metrics.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
