package scanner

import (
	"fmt"
	"io"
	"time"

	"eigenimages/logging"
)

// NewProgressTracker initializes the progress tracker
func NewProgressTracker(total int, results <-chan FolderOutcome, out io.Writer) *ProgressTracker {
	if out == nil {
		out = io.Discard
	}
	tracker := &ProgressTracker{
		total:   total,
		ticker:  time.NewTicker(500 * time.Millisecond),
		done:    make(chan bool),
		drained: make(chan struct{}),
		out:     out,
	}

	// Start progress display goroutine
	go tracker.displayProgress()

	// Start result processor goroutine
	go tracker.processResults(results)

	return tracker
}

// displayProgress shows the progress periodically
func (p *ProgressTracker) displayProgress() {
	for {
		select {
		case <-p.done:
			return
		case <-p.ticker.C:
			p.printLine()
		}
	}
}

func (p *ProgressTracker) printLine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\rProgress: %d/%d (Errors: %d)", p.processed, p.total, p.errors)
}

// processResults updates the tracker state based on folder outcomes
func (p *ProgressTracker) processResults(results <-chan FolderOutcome) {
	defer close(p.drained)
	for result := range results {
		p.mu.Lock()
		p.processed++
		if !result.Success {
			p.errors++
		}
		p.mu.Unlock()

		logging.LogFolderProcessed(result.Folder, result.Success, result.Error)
	}
}

// Stop waits for the results channel to be closed and drained, then ends
// the progress display with a final line
func (p *ProgressTracker) Stop() {
	<-p.drained
	p.ticker.Stop()
	p.done <- true
	p.printLine()
	fmt.Fprintln(p.out)
}

// PrintStartupInfo displays information about the batch before starting
func PrintStartupInfo(out io.Writer, folders []string, options BatchOptions, resultsDir string) {
	if out == nil {
		return
	}
	fmt.Fprintf(out, "Starting eigenimage batch...\nFolders to process: %d (%d image files)\n", len(folders), countImages(folders))
	fmt.Fprintf(out, "Results folder: %s\n", resultsDir)
	fmt.Fprintf(out, "Static resize: %v\n", options.StaticResize)
}

// PrintCompletionStats displays statistics after the batch has finished
func PrintCompletionStats(out io.Writer, summary *BatchSummary) {
	if out == nil {
		return
	}
	if summary.Cancelled {
		fmt.Fprintln(out, "Batch cancelled.")
	} else {
		fmt.Fprintln(out, "Batch complete.")
	}
	fmt.Fprintf(out, "Processed %d/%d folders in %v.\n", summary.Processed, summary.Total, summary.Elapsed.Round(time.Millisecond))

	if summary.Failed > 0 {
		fmt.Fprintf(out, "Encountered %d errors:\n", summary.Failed)
		for _, o := range summary.Outcomes {
			if !o.Success {
				fmt.Fprintf(out, "  %s: %v\n", o.Folder, o.Error)
			}
		}
		fmt.Fprintln(out, "Check the log file for details.")
	}
}
