// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides disk persistence for conversations, named code
// artifacts, and the upload workspace.
package store

import (
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// modelSuffix restricts the catalog to quantized model files.
const modelSuffix = ".gguf"

// ModelCatalog tracks the .gguf files available in the models
// directory. A filesystem watcher keeps the list current so models
// dropped into the directory show up without a server restart.
type ModelCatalog struct {
	dir string

	mu     sync.RWMutex
	models []string

	watcher *fsnotify.Watcher
}

// NewModelCatalog scans dir and returns a catalog of its model files.
// The directory is created if missing so a fresh install starts empty
// rather than erroring.
func NewModelCatalog(dir string) (*ModelCatalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	c := &ModelCatalog{dir: dir}
	if err := c.rescan(); err != nil {
		return nil, err
	}
	return c, nil
}

// Watch starts the filesystem watcher. Safe to skip in tests; List
// falls back to the last scan.
func (c *ModelCatalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return err
	}
	c.watcher = watcher

	go c.processEvents()
	return nil
}

// Close stops the watcher if one is running.
func (c *ModelCatalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	return c.watcher.Close()
}

// List returns the known model filenames, sorted.
func (c *ModelCatalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// Contains reports whether name is a known model file.
func (c *ModelCatalog) Contains(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, m := range c.models {
		if m == name {
			return true
		}
	}
	return false
}

// rescan reloads the model list from disk.
func (c *ModelCatalog) rescan() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}

	models := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), modelSuffix) {
			continue
		}
		models = append(models, entry.Name())
	}
	sort.Strings(models)

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()
	return nil
}

// processEvents rescans on any create/remove/rename in the models
// directory. Events are coarse; a full rescan is cheap at this scale.
func (c *ModelCatalog) processEvents() {
	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := c.rescan(); err != nil {
				log.Printf("MODEL_RESCAN_FAILED | error=%v", err)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("MODEL_WATCH_ERROR | error=%v", err)
		}
	}
}
