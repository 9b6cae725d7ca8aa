// Package progress implements the process-wide progress file: a single
// UTF-8 line overwritten at each optimizer stage transition so an external
// UI can poll run progress without any IPC channel.
package progress

import (
	"os"
	"path/filepath"
)

// Writer overwrites the progress file at <cacheDir>/alc/current_step.txt.
type Writer struct {
	path string
}

// New creates the alc subdirectory under cacheDir if needed and returns a
// Writer targeting its current_step.txt.
func New(cacheDir string) (*Writer, error) {
	dir := filepath.Join(cacheDir, "alc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Writer{path: filepath.Join(dir, "current_step.txt")}, nil
}

// Set overwrites the progress file with stage.
func (w *Writer) Set(stage string) error {
	return os.WriteFile(w.path, []byte(stage+"\n"), 0o644)
}

// Path returns the progress file's path, mainly for tests and logging.
func (w *Writer) Path() string { return w.path }
