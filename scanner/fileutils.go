package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"eigenimages/config"
	"eigenimages/imageprocessor"
)

// IsHidden reports whether a file or folder name starts with a dot
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// ResolveResultsDir returns the absolute-or-joined results directory for an
// input directory
func ResolveResultsDir(inputDir, resultsDir string) string {
	if resultsDir == "" {
		resultsDir = config.DefaultResultsDir
	}
	if filepath.IsAbs(resultsDir) {
		return filepath.Clean(resultsDir)
	}
	return filepath.Join(inputDir, resultsDir)
}

// ListSubfolders returns the immediate subfolders of dir sorted by name,
// leaving out hidden folders, the default results folder and resultsDir.
func ListSubfolders(dir, resultsDir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read input folder %s: %v", dir, err)
	}

	var folders []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || IsHidden(name) || name == config.DefaultResultsDir {
			continue
		}
		path := filepath.Join(dir, name)
		if resultsDir != "" && filepath.Clean(path) == filepath.Clean(resultsDir) {
			continue
		}
		folders = append(folders, path)
	}

	sort.Strings(folders)
	return folders, nil
}

// ensureDir creates dir if missing. An existing directory is reported but
// is not an error.
func ensureDir(dir string) (existed bool, err error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return true, fmt.Errorf("%s exists and is not a directory", dir)
		}
		return true, nil
	}
	if !os.IsNotExist(err) {
		return false, err
	}
	return false, os.MkdirAll(dir, 0o755)
}

// countImages counts the supported image files directly inside each folder
func countImages(folders []string) int {
	total := 0
	for _, folder := range folders {
		entries, err := os.ReadDir(folder)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && imageprocessor.IsImageFile(entry.Name()) {
				total++
			}
		}
	}
	return total
}
