// Package exporter writes eigenimage scores and images to disk.
package exporter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strconv"
	"strings"

	"eigenimages/imageprocessor"
	"eigenimages/logging"
	"eigenimages/types"
)

// ErrExport signals a failure to produce or write an artifact.
var ErrExport = errors.New("export failed")

// ScoreHeader is the header row of the score file.
var ScoreHeader = []string{"All values", "No Negatives", ""}

const (
	csvExt         = ".csv"
	imageExt       = ".png"
	nonNegImageExt = "_non_neg.png"
)

// Artifacts are the paths written for one eigenimage
type Artifacts struct {
	CSV         string
	Image       string
	NonNegImage string
}

// ArtifactPaths derives the three output paths from a common prefix
func ArtifactPaths(prefix string) Artifacts {
	return Artifacts{
		CSV:         prefix + csvExt,
		Image:       prefix + imageExt,
		NonNegImage: prefix + nonNegImageExt,
	}
}

// PrefixFromCSVPath turns a user supplied score file path into an artifact
// prefix, adding the .csv extension when it is missing.
func PrefixFromCSVPath(path string) string {
	if strings.HasSuffix(path, csvExt) {
		return strings.TrimSuffix(path, csvExt)
	}
	return path
}

// Normalize linearly maps v onto 0..255 (min to 0, max to 255) and casts to
// 8 bits by truncation. A constant vector maps to all zeros.
func Normalize(v []float64) []uint8 {
	out := make([]uint8, len(v))
	if len(v) == 0 {
		return out
	}

	lo, hi := v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if hi == lo {
		return out
	}

	span := hi - lo
	for i, x := range v {
		out[i] = uint8((x - lo) / span * 255)
	}
	return out
}

// Render normalizes v, reshapes it to working and resizes it to original.
func Render(v []float64, working, original types.Shape) (*image.Gray, error) {
	if len(v) != working.Pixels() {
		return nil, fmt.Errorf("%w: vector has %d values, working shape %s needs %d",
			ErrExport, len(v), working, working.Pixels())
	}

	pix, err := imageprocessor.ResizeGray(Normalize(v), working, original)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExport, err)
	}

	return &image.Gray{
		Pix:    pix,
		Stride: original.Width,
		Rect:   image.Rect(0, 0, original.Width, original.Height),
	}, nil
}

// WriteImage encodes img as PNG at path
func WriteImage(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: encode %s: %v", ErrExport, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrExport, path, err)
	}
	return nil
}

// WriteScores writes the header row and one data row with the score pair
func WriteScores(path string, scores types.ScorePair) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExport, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(ScoreHeader); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %v", ErrExport, path, err)
	}
	w.Write([]string{formatScore(scores.All), formatScore(scores.NonNegative)})
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("%w: write %s: %v", ErrExport, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrExport, path, err)
	}
	return nil
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Export writes the score file and the full and positive-only eigenimages,
// each normalized against its own range and resized to the original shape.
// Both images are rendered before anything is written, and a failed write
// removes the artifacts this call already wrote.
func Export(prefix string, composite, positive []float64, scores types.ScorePair, working, original types.Shape) (Artifacts, error) {
	paths := ArtifactPaths(prefix)

	full, err := Render(composite, working, original)
	if err != nil {
		return paths, err
	}
	nonNeg, err := Render(positive, working, original)
	if err != nil {
		return paths, err
	}

	if err := WriteScores(paths.CSV, scores); err != nil {
		return paths, err
	}
	if err := WriteImage(paths.Image, full); err != nil {
		removeArtifacts(paths.CSV)
		return paths, err
	}
	if err := WriteImage(paths.NonNegImage, nonNeg); err != nil {
		removeArtifacts(paths.CSV, paths.Image)
		return paths, err
	}

	return paths, nil
}

func removeArtifacts(paths ...string) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logging.LogWarning("Cannot remove partial artifact %s: %v", p, err)
		}
	}
}
