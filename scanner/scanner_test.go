package scanner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"eigenimages/database"
	"eigenimages/imageprocessor"
	"eigenimages/types"
)

func writeFolder(t *testing.T, dir string, n int) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(int64(n)))
	for i := 0; i < n; i++ {
		img := image.NewGray(image.Rect(0, 0, 40, 40))
		for j := range img.Pix {
			img.Pix[j] = uint8((j*(i+1))%180 + rng.Intn(60))
		}
		f, err := os.Create(filepath.Join(dir, string(rune('a'+i))+".png"))
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

func TestListSubfolders(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b", "a", ".hidden", "Results", "out"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "c.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ListSubfolders(dir, filepath.Join(dir, "out"))
	if err != nil {
		t.Fatalf("ListSubfolders: %v", err)
	}
	want := []string{filepath.Join(dir, "a"), filepath.Join(dir, "b")}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("folder %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestResolveResultsDir(t *testing.T) {
	tests := []struct {
		input, results, want string
	}{
		{"/data", "", "/data/Results"},
		{"/data", "out", "/data/out"},
		{"/data", "/tmp/out/", "/tmp/out"},
	}
	for _, tt := range tests {
		if got := ResolveResultsDir(tt.input, tt.results); got != tt.want {
			t.Errorf("ResolveResultsDir(%q, %q) = %q, want %q", tt.input, tt.results, got, tt.want)
		}
	}
}

func TestRunBatch_ContinuesAfterFailure(t *testing.T) {
	in := t.TempDir()
	writeFolder(t, filepath.Join(in, "a_empty"), 0)
	writeFolder(t, filepath.Join(in, "b_good"), 12)
	writeFolder(t, filepath.Join(in, ".cache"), 12)

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var progress bytes.Buffer
	summary, err := RunBatch(context.Background(), db, BatchOptions{
		InputDir:     in,
		StaticResize: true,
		Progress:     &progress,
	})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if summary.Total != 2 || summary.Processed != 2 || summary.Failed != 1 || summary.Cancelled {
		t.Fatalf("summary = %+v", summary)
	}
	if !errors.Is(summary.Outcomes[0].Error, imageprocessor.ErrEmptyCorpus) {
		t.Errorf("first outcome error = %v, want ErrEmptyCorpus", summary.Outcomes[0].Error)
	}
	if !summary.Outcomes[1].Success {
		t.Errorf("second folder failed: %v", summary.Outcomes[1].Error)
	}

	results := filepath.Join(in, "Results")
	for _, name := range []string{"b_good.csv", "b_good.png", "b_good_non_neg.png"} {
		if _, err := os.Stat(filepath.Join(results, name)); err != nil {
			t.Errorf("missing artifact %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(results, "a_empty.csv")); !os.IsNotExist(err) {
		t.Errorf("failed folder produced a score file")
	}

	if !strings.Contains(progress.String(), "Folders to process: 2 (12 image files)") {
		t.Errorf("startup output = %q", progress.String())
	}
	if !strings.Contains(progress.String(), "Progress: 2/2 (Errors: 1)") {
		t.Errorf("progress output = %q", progress.String())
	}

	stats, err := database.GetRunStats(db)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRuns != 2 || stats.FailedRuns != 1 {
		t.Errorf("ledger stats = %+v", stats)
	}
	runs, err := database.QueryResults(db, "b_good")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Status != types.StatusOK || runs[0].ImageCount != 12 {
		t.Errorf("ledger entry = %+v", runs)
	}
}

func TestRunBatch_ExistingResultsDir(t *testing.T) {
	in := t.TempDir()
	if err := os.Mkdir(filepath.Join(in, "Results"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFolder(t, filepath.Join(in, "set"), 12)

	summary, err := RunBatch(context.Background(), nil, BatchOptions{InputDir: in, StaticResize: true})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if summary.Total != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	in := t.TempDir()
	writeFolder(t, filepath.Join(in, "one"), 12)
	writeFolder(t, filepath.Join(in, "two"), 12)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := RunBatch(ctx, nil, BatchOptions{InputDir: in, StaticResize: true})
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}
	if !summary.Cancelled || summary.Processed != 0 || summary.Total != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestRunBatch_MissingInput(t *testing.T) {
	if _, err := RunBatch(context.Background(), nil, BatchOptions{InputDir: filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected error for missing input folder")
	}
}
