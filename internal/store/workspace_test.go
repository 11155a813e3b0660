// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"reflect"
	"testing"
)

func TestWorkspaceStore_ReplaceAllIsWholesale(t *testing.T) {
	store, err := NewWorkspaceStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	first := []WorkspaceFile{
		{Path: "main.py", Data: []byte("print(1)")},
		{Path: "lib/util.py", Data: []byte("pass")},
	}
	if err := store.ReplaceAll(first); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	files, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	want := []string{"lib/util.py", "main.py"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("List = %v, want %v", files, want)
	}

	// Second upload replaces the whole tree, never merges.
	second := []WorkspaceFile{{Path: "only.txt", Data: []byte("alone")}}
	if err := store.ReplaceAll(second); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	files, err = store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if !reflect.DeepEqual(files, []string{"only.txt"}) {
		t.Errorf("List after replace = %v, want [only.txt]", files)
	}

	file, err := store.Read("only.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if file.Content != "alone" {
		t.Errorf("Content = %q", file.Content)
	}
	if file.Type != "txt" {
		t.Errorf("Type = %q, want %q", file.Type, "txt")
	}
}

func TestWorkspaceStore_ReplaceAllEmptyClears(t *testing.T) {
	store, err := NewWorkspaceStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if err := store.ReplaceAll([]WorkspaceFile{{Path: "a.txt", Data: []byte("a")}}); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}
	if err := store.ReplaceAll(nil); err != nil {
		t.Fatalf("ReplaceAll(nil) failed: %v", err)
	}

	files, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("List = %v, want empty", files)
	}
}

func TestWorkspaceStore_ReadMissing(t *testing.T) {
	store, err := NewWorkspaceStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.Read("nope.txt"); !errors.Is(err, ErrCodeNotFound) {
		t.Errorf("Read missing = %v, want ErrCodeNotFound", err)
	}
}

func TestWorkspaceStore_RejectsEscapes(t *testing.T) {
	store, err := NewWorkspaceStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	err = store.ReplaceAll([]WorkspaceFile{{Path: "../evil.txt", Data: []byte("x")}})
	if !errors.Is(err, ErrFilenameRequired) {
		t.Errorf("ReplaceAll escape = %v, want ErrFilenameRequired", err)
	}
}
