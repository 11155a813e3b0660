// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeModelFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("gguf"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestModelCatalog_ListsOnlyGGUF(t *testing.T) {
	dir := t.TempDir()
	writeModelFile(t, dir, "llama3.gguf")
	writeModelFile(t, dir, "phi.gguf")
	writeModelFile(t, dir, "readme.txt")
	writeModelFile(t, dir, "partial.gguf.part")
	if err := os.Mkdir(filepath.Join(dir, "nested.gguf"), 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	catalog, err := NewModelCatalog(dir)
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}

	want := []string{"llama3.gguf", "phi.gguf"}
	if got := catalog.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List = %v, want %v", got, want)
	}
	if !catalog.Contains("phi.gguf") {
		t.Error("Contains(phi.gguf) = false, want true")
	}
	if catalog.Contains("readme.txt") {
		t.Error("Contains(readme.txt) = true, want false")
	}
}

func TestModelCatalog_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "models")

	catalog, err := NewModelCatalog(dir)
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}
	if got := catalog.List(); len(got) != 0 {
		t.Errorf("List = %v, want empty", got)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Directory not created: %v", err)
	}
}

func TestModelCatalog_WatchPicksUpNewModel(t *testing.T) {
	dir := t.TempDir()

	catalog, err := NewModelCatalog(dir)
	if err != nil {
		t.Fatalf("Failed to create catalog: %v", err)
	}
	if err := catalog.Watch(); err != nil {
		t.Skipf("Watcher unavailable: %v", err)
	}
	defer catalog.Close()

	writeModelFile(t, dir, "fresh.gguf")

	// Watcher events are asynchronous; poll briefly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if catalog.Contains("fresh.gguf") {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Error("Catalog never picked up fresh.gguf")
}
