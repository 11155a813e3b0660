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

// DefaultFileType is the inferred type for filenames without a dot.
const DefaultFileType = "text"

// CodeFile is the content of a stored code artifact together with its
// inferred type (the substring after the last dot in the filename).
type CodeFile struct {
	Content string
	Type    string
}

// CodeStore persists named code artifacts as plain files under BaseDir.
// Filenames are unique keys; saving overwrites.
type CodeStore struct {
	BaseDir string
}

// NewCodeStore creates a code store rooted at baseDir, creating the
// directory if needed.
func NewCodeStore(baseDir string) (*CodeStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &CodeStore{BaseDir: baseDir}, nil
}

// Save writes an artifact, creating parent path structure as needed and
// overwriting any existing file with the same name.
func (s *CodeStore) Save(filename, content string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(path, []byte(content), 0644)
}

// Read returns an artifact's content and inferred type.
func (s *CodeStore) Read(filename string) (*CodeFile, error) {
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

// Rename moves an artifact to a new filename.
func (s *CodeStore) Rename(oldName, newName string) error {
	oldPath, err := s.resolve(oldName)
	if err != nil {
		return err
	}
	newPath, err := s.resolve(newName)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(newPath), 0755); err != nil {
		return err
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		if os.IsNotExist(err) {
			return ErrCodeNotFound
		}
		return err
	}
	return nil
}

// Delete removes an artifact.
func (s *CodeStore) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrCodeNotFound
		}
		return err
	}
	return nil
}

// List returns the relative paths of all stored artifacts, sorted for
// stable output.
func (s *CodeStore) List() ([]string, error) {
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

// resolve maps a caller-supplied relative filename onto BaseDir,
// rejecting blank names and paths that escape the store root.
func (s *CodeStore) resolve(filename string) (string, error) {
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
