// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestCodeStore_SaveReadType(t *testing.T) {
	store, err := NewCodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("hello.py", "print('hi')"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	file, err := store.Read("hello.py")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if file.Content != "print('hi')" {
		t.Errorf("Content = %q", file.Content)
	}
	if file.Type != "py" {
		t.Errorf("Type = %q, want %q", file.Type, "py")
	}
}

func TestCodeStore_TypeFallsBackForNoExtension(t *testing.T) {
	store, err := NewCodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("Makefile", "all:"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	file, err := store.Read("Makefile")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if file.Type != DefaultFileType {
		t.Errorf("Type = %q, want %q", file.Type, DefaultFileType)
	}
}

func TestCodeStore_RenameAndDelete(t *testing.T) {
	store, err := NewCodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.Save("a.go", "package a"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Rename("a.go", "b.go"); err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if _, err := store.Read("a.go"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("Read old name = %v, want ErrCodeNotFound", err)
	}
	if _, err := store.Read("b.go"); err != nil {
		t.Errorf("Read new name failed: %v", err)
	}

	if err := store.Delete("b.go"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete("b.go"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("Double delete = %v, want ErrCodeNotFound", err)
	}
	if err := store.Rename("gone.go", "x.go"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("Rename missing = %v, want ErrCodeNotFound", err)
	}
}

func TestCodeStore_ListSortedWithSubdirs(t *testing.T) {
	store, err := NewCodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for name, content := range map[string]string{
		"zeta.py":       "z",
		"alpha.py":      "a",
		"pkg/helper.go": "h",
	} {
		if err := store.Save(name, content); err != nil {
			t.Fatalf("Save %q failed: %v", name, err)
		}
	}

	files, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"alpha.py", "pkg/helper.go", "zeta.py"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("List = %v, want %v", files, want)
	}
}

func TestCodeStore_RejectsEscapes(t *testing.T) {
	store, err := NewCodeStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, name := range []string{"", "   ", "../outside.txt", "../../etc/passwd"} {
		if err := store.Save(name, "x"); !errors.Is(err, ErrFilenameRequired) {
			t.Errorf("Save(%q) = %v, want ErrFilenameRequired", name, err)
		}
	}
}
