// Package fsoutput writes debugging artifacts into a directory, one file per id.
package fsoutput

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

var unsafeChars = regexp.MustCompile(`[^\w.\-]+`)

type FilesystemOutput struct {
	directory string
}

// New creates (or reuses) the directory and returns an output writing into it.
func New(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0o700)
	if err != nil {
		return FilesystemOutput{}, err
	}
	return FilesystemOutput{directory: dir}, nil
}

// Write stores contents under a file name derived from id, failures are only logged.
func (o FilesystemOutput) Write(id string, contents []byte) {
	name := unsafeChars.ReplaceAllString(id, "_")
	err := os.WriteFile(filepath.Join(o.directory, name), contents, 0o600)
	if err != nil {
		slog.Warn("failed to write output file", "id", id, "err", err)
	}
}
