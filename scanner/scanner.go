package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"eigenimages/logging"
	"eigenimages/pipeline"

	"go.uber.org/zap"
)

// RunBatch runs the pipeline over every subfolder of options.InputDir, one
// folder at a time, writing <results>/<folder>.csv/.png/_non_neg.png. A
// failing folder is logged and recorded and the batch moves on. The context
// is checked before each folder; a cancelled batch returns the summary so
// far with Cancelled set.
func RunBatch(ctx context.Context, db *sql.DB, options BatchOptions) (*BatchSummary, error) {
	resultsDir := ResolveResultsDir(options.InputDir, options.ResultsDir)

	folders, err := ListSubfolders(options.InputDir, resultsDir)
	if err != nil {
		return nil, err
	}

	existed, err := ensureDir(resultsDir)
	if err != nil {
		return nil, fmt.Errorf("cannot create results folder: %v", err)
	}
	if existed {
		logging.LogWarning("%s already exists", resultsDir)
	}

	PrintStartupInfo(options.Progress, folders, options, resultsDir)

	summary := &BatchSummary{
		ResultsDir: resultsDir,
		Total:      len(folders),
	}

	// Set up progress tracking
	resultsChan := make(chan FolderOutcome, len(folders))
	tracker := NewProgressTracker(len(folders), resultsChan, options.Progress)

	startTime := time.Now()
	for _, folder := range folders {
		if ctx.Err() != nil {
			summary.Cancelled = true
			logging.L().Warn("batch cancelled", zap.Int("remaining", len(folders)-summary.Processed))
			break
		}

		outcome := processFolder(ctx, db, folder, resultsDir, options)
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.Processed++
		if !outcome.Success {
			summary.Failed++
		}
		resultsChan <- outcome
	}

	close(resultsChan)
	tracker.Stop()

	summary.Elapsed = time.Since(startTime)
	PrintCompletionStats(options.Progress, summary)

	logging.L().Info("batch finished",
		zap.String("input", options.InputDir),
		zap.Int("folders", summary.Total),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Bool("cancelled", summary.Cancelled),
		zap.Duration("elapsed", summary.Elapsed),
	)

	return summary, nil
}

// processFolder runs the pipeline for one folder and records the outcome
func processFolder(ctx context.Context, db *sql.DB, folder, resultsDir string, options BatchOptions) FolderOutcome {
	opts := pipeline.Options{
		Folder:       folder,
		StaticResize: options.StaticResize,
		Components:   options.Components,
		Threshold:    options.Threshold,
		OutputPrefix: filepath.Join(resultsDir, filepath.Base(folder)),
	}

	logging.DebugLog("Processing folder %s", folder)
	start := time.Now()
	res, err := pipeline.Run(ctx, opts)
	recordRun(db, opts, res, err, time.Since(start))

	return FolderOutcome{
		Folder:  folder,
		Prefix:  opts.OutputPrefix,
		Success: err == nil,
		Error:   err,
	}
}
