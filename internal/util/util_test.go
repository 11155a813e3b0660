// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	if err := AtomicWriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("Content = %q, want %q", data, "first")
	}

	// Overwrite in place
	if err := AtomicWriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "second" {
		t.Errorf("Content after overwrite = %q, want %q", data, "second")
	}

	// No temp files left behind
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Directory has %d entries, want 1", len(entries))
	}
}

func TestAtomicWriteFileCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "out.txt")

	if err := AtomicWriteFile(path, []byte("deep"), 0644); err != nil {
		t.Fatalf("AtomicWriteFile failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("File not created: %v", err)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxRunes int
		want     string
	}{
		{"ShortUnchanged", "hello", 10, "hello"},
		{"ExactFits", "hello", 5, "hello"},
		{"TruncatedWithEllipsis", "hello world", 8, "hello..."},
		{"TinyLimitNoEllipsis", "hello", 3, "hel"},
		{"ZeroLimit", "hello", 0, ""},
		{"MultiByteRunes", "héllo wörld", 8, "héllo..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.maxRunes); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.maxRunes, got, tt.want)
			}
		})
	}
}

func TestFileExt(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"SimpleExtension", "main.py", "py"},
		{"MultipleDots", "archive.tar.gz", "gz"},
		{"NoDot", "Makefile", "text"},
		{"TrailingDot", "weird.", ""},
		{"PathWithExtension", "pkg/helper.go", "go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FileExt(tt.filename, "text"); got != tt.want {
				t.Errorf("FileExt(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}
