package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupLogger_WritesJSONToFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "eigenimages.log")

	if err := SetupLogger(Options{LogFile: logPath, Level: "info"}); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	LogInfo("processing %s", "folder-a")
	LogFolderProcessed("folder-b", false, errors.New("no usable images"))
	CloseLogger()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", len(lines), data)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["folder"] != "folder-b" {
		t.Errorf("folder field = %v, want folder-b", entry["folder"])
	}
	if entry["error"] != "no usable images" {
		t.Errorf("error field = %v", entry["error"])
	}
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	defer CloseLogger()

	err := SetupLogger(Options{Level: "loud"})
	if err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestDebugLog_FilteredAtInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "debug.log")

	if err := SetupLogger(Options{LogFile: logPath}); err != nil {
		t.Fatalf("SetupLogger: %v", err)
	}
	DebugLog("skipped %s", "a.png")
	CloseLogger()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "a.png") {
		t.Errorf("debug entry written at info level:\n%s", data)
	}
}
