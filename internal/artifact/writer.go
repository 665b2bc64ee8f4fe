// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package artifact persists acquisition outcomes: one canonical artifact
// per identifier, plus the failure ledger for identifiers that exhausted
// every source.
package artifact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jomare1188/studious-funicular/internal/source"
	"github.com/jomare1188/studious-funicular/pkg/types"
)

// Extensions by result shape: structured records serialize as JSON, raw
// payloads are written verbatim as PDF.
const (
	RecordExt = ".json"
	RawExt    = ".pdf"
)

// Writer persists artifacts for one collection's output directory. The
// filename is derived from the identifier, so the same identifier always
// addresses the same artifact.
type Writer struct {
	dir string
}

// NewWriter returns a Writer rooted at dir. The directory is created on
// first write, not on construction.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the writer's output directory.
func (w *Writer) Dir() string { return w.dir }

// RecordPath returns the artifact path a structured record for doi
// would be written to.
func (w *Writer) RecordPath(doi string) string {
	return filepath.Join(w.dir, source.SafeName(doi)+RecordExt)
}

// RawPath returns the artifact path a raw payload for doi would be
// written to.
func (w *Writer) RawPath(doi string) string {
	return filepath.Join(w.dir, source.SafeName(doi)+RawExt)
}

// Existing returns the path of an already-persisted artifact for doi, in
// either representation, or "" when none exists.
func (w *Writer) Existing(doi string) string {
	for _, p := range []string{w.RecordPath(doi), w.RawPath(doi)} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// WriteRecord serializes rec as indented JSON under the identifier-derived
// name and returns the artifact path.
func (w *Writer) WriteRecord(doi string, rec *types.StructuredRecord) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling record for %s: %w", doi, err)
	}
	path := w.RecordPath(doi)
	if err := WriteAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteRaw writes the binary payload verbatim under the identifier-derived
// name and returns the artifact path.
func (w *Writer) WriteRaw(doi string, data []byte) (string, error) {
	path := w.RawPath(doi)
	if err := WriteAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteAtomic writes data to path all-or-nothing: the bytes go to a
// temporary file in the destination directory which is renamed into place
// only after a clean close. An interrupted write leaves no artifact at
// path.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing %s: %w", path, writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
