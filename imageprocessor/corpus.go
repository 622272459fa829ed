package imageprocessor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"eigenimages/logging"
	"eigenimages/metrics"
	"eigenimages/types"

	"gocv.io/x/gocv"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrFolderUnreadable signals a missing or unreadable input folder.
	ErrFolderUnreadable = errors.New("folder unreadable")
	// ErrEmptyCorpus signals a folder without a single usable image.
	ErrEmptyCorpus = errors.New("no usable images")
	// ErrShapeMismatch signals corpus rows of different lengths.
	ErrShapeMismatch = errors.New("image vector length mismatch")
	// ErrWorkingShape signals a working shape with a zero dimension.
	ErrWorkingShape = errors.New("working shape too small")
)

// Corpus is a folder of images flattened into the rows of a matrix
type Corpus struct {
	Matrix   *mat.Dense  // rows = images, columns = working pixels, values 0..255
	Original types.Shape // shape of the first decoded image
	Working  types.Shape // shape every image was resized to
	Files    []string    // files that made it into the corpus, row order
	Skipped  []string    // supported files that failed to decode
}

// Len returns the number of images in the corpus
func (c *Corpus) Len() int {
	return len(c.Files)
}

// LoadCorpus reads every supported image in folder (non-recursive, sorted
// by name), decodes it as grayscale, resizes it to the working shape and
// stacks the flattened pixels into a matrix. Undecodable files are skipped.
// The first decoded image fixes both the original and the working shape.
func LoadCorpus(folder string, policy ResizePolicy) (*Corpus, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFolderUnreadable, folder, err)
	}

	// Make the reference image independent of directory order
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	registry := NewImageLoaderRegistry()
	corpus := &Corpus{}
	var rows [][]float64

	for _, entry := range entries {
		path := filepath.Join(folder, entry.Name())
		if entry.IsDir() || !registry.CanLoadFile(path) {
			continue
		}

		row, err := loadRow(registry, path, corpus, policy)
		if err != nil {
			if errors.Is(err, ErrWorkingShape) {
				return nil, err
			}
			logging.DebugLog("Skipping %s: %v", path, err)
			corpus.Skipped = append(corpus.Skipped, path)
			metrics.ImagesSkippedTotal.Inc()
			continue
		}

		rows = append(rows, row)
		corpus.Files = append(corpus.Files, path)
		metrics.ImagesLoadedTotal.Inc()
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrEmptyCorpus, folder)
	}

	// Check that all images are of the same size
	cols := len(rows[0])
	for i, row := range rows[1:] {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: %s has %d values, %s has %d",
				ErrShapeMismatch, corpus.Files[i+1], len(row), corpus.Files[0], cols)
		}
	}

	data := make([]float64, 0, len(rows)*cols)
	for _, row := range rows {
		data = append(data, row...)
	}
	corpus.Matrix = mat.NewDense(len(rows), cols, data)

	logging.L().Debug("corpus loaded",
		zap.String("folder", folder),
		zap.Int("images", len(rows)),
		zap.Int("skipped", len(corpus.Skipped)),
		zap.Stringer("original", corpus.Original),
		zap.Stringer("working", corpus.Working),
	)

	return corpus, nil
}

// loadRow decodes one file and returns its resized, flattened pixels. The
// first successful call fixes the corpus shapes.
func loadRow(registry *ImageLoaderRegistry, path string, corpus *Corpus, policy ResizePolicy) ([]float64, error) {
	img, err := registry.LoadImage(path)
	if err != nil {
		img.Close()
		return nil, err
	}
	defer img.Close()

	if img.Channels() != 1 {
		return nil, fmt.Errorf("expected 1 channel, got %d: %s", img.Channels(), path)
	}

	if corpus.Original.IsZero() {
		original := types.Shape{Height: img.Rows(), Width: img.Cols()}
		working, err := policy.WorkingShape(original)
		if err != nil {
			return nil, err
		}
		corpus.Original = original
		corpus.Working = working
	}

	resized, err := resizeTo(img, corpus.Working)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	defer resized.Close()

	return flatten(resized), nil
}

// flatten returns the Mat's pixels row-major as float64
func flatten(img gocv.Mat) []float64 {
	pix := img.ToBytes()
	row := make([]float64, len(pix))
	for i, p := range pix {
		row[i] = float64(p)
	}
	return row
}
