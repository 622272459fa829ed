package types

import "fmt"

// Shape is an image size in pixels, height first
type Shape struct {
	Height int `json:"height"`
	Width  int `json:"width"`
}

// Pixels returns the length of a flattened image of this shape
func (s Shape) Pixels() int {
	return s.Height * s.Width
}

// IsZero reports whether either dimension is unset
func (s Shape) IsZero() bool {
	return s.Height <= 0 || s.Width <= 0
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// ScorePair holds the two eigenimage scores
type ScorePair struct {
	All         float64 `json:"all"`
	NonNegative float64 `json:"non_negative"`
}

// Folder run statuses stored in the run ledger
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// FolderResult is the ledger record of one pipeline run over a folder
type FolderResult struct {
	ID                 int64     `json:"id"`
	FolderPath         string    `json:"folder_path"`
	FolderName         string    `json:"folder_name"`
	OutputPrefix       string    `json:"output_prefix"`
	ImageCount         int       `json:"image_count"`
	Original           Shape     `json:"original"`
	Working            Shape     `json:"working"`
	ComponentBudget    int       `json:"component_budget"`
	SelectedComponents int       `json:"selected_components"`
	ExplainedVariance  float64   `json:"explained_variance"`
	Scores             ScorePair `json:"scores"`
	CSVPath            string    `json:"csv_path"`
	ImagePath          string    `json:"image_path"`
	NonNegImagePath    string    `json:"non_neg_image_path"`
	Status             string    `json:"status"`
	Error              string    `json:"error"`
	DurationMs         int64     `json:"duration_ms"`
	ProcessedAt        string    `json:"processed_at"`
}
