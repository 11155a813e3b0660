// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides disk persistence for conversations, named code
// artifacts, and the upload workspace.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/scriptwizard/obscyrus/internal/util"
)

// WorkspaceFile is one uploaded file: a slash-separated relative path
// and its raw content.
type WorkspaceFile struct {
	Path string
	Data []byte
}

// WorkspaceStore holds the ephemeral upload tree. Unlike the code
// store it is replaced wholesale on each upload: the previous tree is
// fully cleared before the new one is written, never merged.
type WorkspaceStore struct {
	BaseDir string
}

// NewWorkspaceStore creates a workspace rooted at baseDir, creating the
// directory if needed.
func NewWorkspaceStore(baseDir string) (*WorkspaceStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &WorkspaceStore{BaseDir: baseDir}, nil
}

// ReplaceAll clears the existing tree and writes the new files. Clearing
// happens before any write so a failed upload never leaves a merge of
// old and new trees behind.
func (s *WorkspaceStore) ReplaceAll(files []WorkspaceFile) error {
	if err := s.clear(); err != nil {
		return err
	}

	for _, f := range files {
		path, err := s.resolve(f.Path)
		if err != nil {
			return err
		}
		if err := util.AtomicWriteFile(path, f.Data, 0644); err != nil {
			return err
		}
	}

	return nil
}

// Read returns a workspace file's content and inferred type.
func (s *WorkspaceStore) Read(filename string) (*CodeFile, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCodeNotFound
		}
		return nil, err
	}
	return &CodeFile{
		Content: string(data),
		Type:    util.FileExt(filename, DefaultFileType),
	}, nil
}

// List returns the relative paths of the current tree, sorted.
func (s *WorkspaceStore) List() ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(s.BaseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.BaseDir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// clear removes every entry under the workspace root, keeping the root
// itself.
func (s *WorkspaceStore) clear() error {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(s.BaseDir, 0755)
		}
		return err
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.BaseDir, entry.Name())); err != nil {
			return err
		}
	}
	return nil
}

// resolve maps a relative upload path onto BaseDir, rejecting blank
// names and escapes.
func (s *WorkspaceStore) resolve(filename string) (string, error) {
	if strings.TrimSpace(filename) == "" {
		return "", ErrFilenameRequired
	}
	path := filepath.Join(s.BaseDir, filepath.FromSlash(filename))
	rel, err := filepath.Rel(s.BaseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrFilenameRequired
	}
	return path, nil
}
