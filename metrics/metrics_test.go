package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	Register()
	Register() // second call must not panic on duplicate registration

	FoldersProcessedTotal.WithLabelValues("ok").Inc()
	StageDuration.WithLabelValues("pca").Observe(0.2)

	path := filepath.Join(t.TempDir(), "eigenimages.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}

	for _, want := range []string{
		`eigenimages_folders_processed_total{status="ok"}`,
		`eigenimages_stage_duration_seconds_bucket{stage="pca"`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("textfile missing %q:\n%s", want, data)
		}
	}
}
