package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eigenimages/exporter"
	"eigenimages/imageprocessor"
	"eigenimages/pca"
	"eigenimages/types"
)

// writeCorpus writes n noisy w x h grayscale PNGs into dir
func writeCorpus(t *testing.T, dir string, n, w, h int) {
	t.Helper()
	rng := rand.New(rand.NewSource(int64(n)))
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				base := (x*(i+1) + y*(n-i)) % 200
				img.SetGray(x, y, color.Gray{Y: uint8(base + rng.Intn(50))})
			}
		}
		f, err := os.Create(filepath.Join(dir, "img_"+string(rune('a'+i))+".png"))
		if err != nil {
			t.Fatal(err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			t.Fatal(err)
		}
		f.Close()
	}
}

func decodeSize(t *testing.T, path string) (int, int) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	if cfg.ColorModel != color.GrayModel {
		t.Errorf("%s is not single-channel grayscale", path)
	}
	return cfg.Width, cfg.Height
}

func TestRun_FixedResize(t *testing.T) {
	in := t.TempDir()
	writeCorpus(t, in, 12, 200, 200)
	prefix := filepath.Join(t.TempDir(), "scores")

	res, err := Run(context.Background(), Options{
		Folder:       in,
		StaticResize: true,
		OutputPrefix: prefix,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.ImageCount != 12 {
		t.Errorf("images = %d, want 12", res.ImageCount)
	}
	if res.Working != (types.Shape{Height: 100, Width: 100}) {
		t.Errorf("working = %v, want 100x100", res.Working)
	}
	if res.ComponentBudget != pca.DefaultComponents {
		t.Errorf("budget = %d, want %d", res.ComponentBudget, pca.DefaultComponents)
	}
	if res.SelectedComponents < 1 || res.SelectedComponents > pca.DefaultComponents {
		t.Errorf("selected = %d, outside 1..%d", res.SelectedComponents, pca.DefaultComponents)
	}
	if res.Scores.NonNegative < res.Scores.All {
		t.Errorf("positive score %g below raw score %g", res.Scores.NonNegative, res.Scores.All)
	}

	data, err := os.ReadFile(prefix + ".csv")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv has %d lines, want 2: %q", len(lines), data)
	}
	if lines[0] != "All values,No Negatives," {
		t.Errorf("header = %q", lines[0])
	}
	if fields := strings.Split(lines[1], ","); len(fields) != 2 {
		t.Errorf("data row = %q, want two fields", lines[1])
	}

	for _, p := range []string{res.Artifacts.Image, res.Artifacts.NonNegImage} {
		if w, h := decodeSize(t, p); w != 200 || h != 200 {
			t.Errorf("%s is %dx%d, want 200x200", p, w, h)
		}
	}
	if res.Artifacts != exporter.ArtifactPaths(prefix) {
		t.Errorf("artifacts = %+v", res.Artifacts)
	}
}

func TestRun_Deterministic(t *testing.T) {
	in := t.TempDir()
	writeCorpus(t, in, 12, 60, 40)
	out := t.TempDir()

	first, err := Run(context.Background(), Options{Folder: in, OutputPrefix: filepath.Join(out, "a")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(context.Background(), Options{Folder: in, OutputPrefix: filepath.Join(out, "b")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if first.Scores != second.Scores || first.SelectedComponents != second.SelectedComponents {
		t.Fatalf("runs differ: %+v vs %+v", first, second)
	}
	if first.Working != (types.Shape{Height: 4, Width: 6}) {
		t.Errorf("working = %v, want 6x4", first.Working)
	}

	for _, pair := range [][2]string{
		{first.Artifacts.CSV, second.Artifacts.CSV},
		{first.Artifacts.Image, second.Artifacts.Image},
		{first.Artifacts.NonNegImage, second.Artifacts.NonNegImage},
	} {
		a, _ := os.ReadFile(pair[0])
		b, _ := os.ReadFile(pair[1])
		if !bytes.Equal(a, b) {
			t.Errorf("%s and %s differ", pair[0], pair[1])
		}
	}
}

func TestRun_Failures(t *testing.T) {
	small := t.TempDir()
	writeCorpus(t, small, 3, 50, 50)

	tests := []struct {
		name    string
		folder  string
		stage   string
		wantErr error
	}{
		{"budget exceeds image count", small, StagePCA, pca.ErrDimensionality},
		{"empty folder", t.TempDir(), StageLoad, imageprocessor.ErrEmptyCorpus},
		{"missing folder", filepath.Join(t.TempDir(), "missing"), StageLoad, imageprocessor.ErrFolderUnreadable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefix := filepath.Join(t.TempDir(), "out")
			_, err := Run(context.Background(), Options{Folder: tt.folder, StaticResize: true, OutputPrefix: prefix})

			var ferr *FolderError
			if !errors.As(err, &ferr) {
				t.Fatalf("err = %v, want *FolderError", err)
			}
			if ferr.Stage != tt.stage {
				t.Errorf("stage = %q, want %q", ferr.Stage, tt.stage)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if _, statErr := os.Stat(prefix + ".csv"); !os.IsNotExist(statErr) {
				t.Errorf("score file written for a failed run")
			}
		})
	}
}

func TestRun_ExportFailure(t *testing.T) {
	in := t.TempDir()
	writeCorpus(t, in, 12, 30, 30)

	prefix := filepath.Join(t.TempDir(), "no", "such", "out")
	_, err := Run(context.Background(), Options{Folder: in, StaticResize: true, OutputPrefix: prefix})

	var ferr *FolderError
	if !errors.As(err, &ferr) || ferr.Stage != StageExport {
		t.Fatalf("err = %v, want export stage failure", err)
	}
	if !errors.Is(err, exporter.ErrExport) {
		t.Errorf("err = %v, want ErrExport", err)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Options{Folder: t.TempDir(), OutputPrefix: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRecord(t *testing.T) {
	res := &Result{
		Folder:             "/data/set1",
		ImageCount:         12,
		ComponentBudget:    10,
		SelectedComponents: 3,
		Scores:             types.ScorePair{All: 1, NonNegative: 2},
		Artifacts:          exporter.ArtifactPaths("/out/set1"),
	}
	rec := res.Record("/out/set1")
	if rec.FolderName != "set1" || rec.Status != types.StatusOK || rec.CSVPath != "/out/set1.csv" {
		t.Errorf("record = %+v", rec)
	}

	failed := FailedRecord(Options{Folder: "/data/set2", OutputPrefix: "/out/set2"}, errors.New("boom"), 0)
	if failed.Status != types.StatusFailed || failed.Error != "boom" || failed.ComponentBudget != pca.DefaultComponents {
		t.Errorf("failed record = %+v", failed)
	}
}
