package scanner

import (
	"io"
	"sync"
	"time"
)

// BatchOptions defines the options for a batch run
type BatchOptions struct {
	InputDir     string
	ResultsDir   string // empty = <InputDir>/Results; relative paths resolve against InputDir
	StaticResize bool
	Components   int
	Threshold    float64
	Progress     io.Writer // progress and summary lines; nil discards them
}

// FolderOutcome holds the result of running the pipeline over one folder
type FolderOutcome struct {
	Folder  string
	Prefix  string
	Success bool
	Error   error
}

// BatchSummary reports a finished (or cancelled) batch run
type BatchSummary struct {
	ResultsDir string
	Total      int // subfolders found
	Processed  int
	Failed     int
	Cancelled  bool
	Outcomes   []FolderOutcome
	Elapsed    time.Duration
}

// ProgressTracker tracks progress of the batch run
type ProgressTracker struct {
	processed int
	errors    int
	total     int
	ticker    *time.Ticker
	done      chan bool
	drained   chan struct{}
	out       io.Writer
	mu        sync.Mutex
}
