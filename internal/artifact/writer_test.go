// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package artifact

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jomare1188/studious-funicular/pkg/types"
)

func TestRecordPathSanitizesDOI(t *testing.T) {
	w := NewWriter("/out")
	got := w.RecordPath("10.1186/s12864-023-09185-9")
	if got != "/out/10.1186_s12864-023-09185-9.json" {
		t.Errorf("RecordPath = %q", got)
	}
	if strings.ContainsAny(filepath.Base(got), "/\\:") {
		t.Errorf("path component carries unsafe characters: %q", got)
	}
}

func TestWriteRecordRoundTrip(t *testing.T) {
	w := NewWriter(t.TempDir())
	rec := &types.StructuredRecord{Title: "A study of drought response"}
	rec.Metadata.ArticleType = "research-article"

	path, err := w.WriteRecord("10.1186/s12864-023-09185-9", rec)
	if err != nil {
		t.Fatalf("WriteRecord: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading artifact: %v", err)
	}
	var got types.StructuredRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("artifact is not valid JSON: %v", err)
	}
	if got.Title != rec.Title {
		t.Errorf("title = %q, want %q", got.Title, rec.Title)
	}
}

func TestWriteRawAndExisting(t *testing.T) {
	w := NewWriter(t.TempDir())
	doi := "10.1371/journal.pone.0261784"

	if p := w.Existing(doi); p != "" {
		t.Fatalf("Existing before write = %q, want empty", p)
	}

	path, err := w.WriteRaw(doi, []byte("%PDF-1.5"))
	if err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	if !strings.HasSuffix(path, RawExt) {
		t.Errorf("path = %q, want %s suffix", path, RawExt)
	}
	if p := w.Existing(doi); p != path {
		t.Errorf("Existing = %q, want %q", p, path)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := WriteAtomic(path, []byte(`{"ok": true}`)); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.json" {
		t.Errorf("directory contents = %v, want only out.json", entries)
	}
}

func TestWriteAtomicCreatesDirectories(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.pdf")
	if err := WriteAtomic(path, []byte("x")); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestWriteAtomicOverwrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := WriteAtomic(path, []byte("first")); err != nil {
		t.Fatal(err)
	}
	if err := WriteAtomic(path, []byte("second")); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("content = %q, want %q", data, "second")
	}
}
