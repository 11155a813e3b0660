// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides disk persistence for conversations, named code
// artifacts, and the upload workspace.
package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/scriptwizard/obscyrus/internal/model"
	"github.com/scriptwizard/obscyrus/internal/util"
)

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// Conversation is a persisted conversation: a stable id, a mutable
// user- or model-assigned name, and the ordered message transcript.
type Conversation struct {
	ID       string          `json:"-"`
	Name     string          `json:"name"`
	Messages []model.Message `json:"messages"`
}

// ConversationMeta is the lightweight listing entry for a conversation.
type ConversationMeta struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore persists one JSON file per conversation, keyed by
// id, under BaseDir. The file contains {name, messages}; the id lives
// only in the filename.
type ConversationStore struct {
	BaseDir string
}

// NewConversationStore creates a store rooted at baseDir, creating the
// directory if needed.
func NewConversationStore(baseDir string) (*ConversationStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	return &ConversationStore{BaseDir: baseDir}, nil
}

// Save persists a conversation and returns its id. A blank id mints a
// fresh one; the conversation is created lazily at first save, never at
// session start. A blank name fails with ErrNameRequired: deriving a
// name is the caller's policy, not the store's.
func (s *ConversationStore) Save(id, name string, messages []model.Message) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrNameRequired
	}
	if id == "" {
		id = uuid.NewString()
	}

	conv := Conversation{Name: name, Messages: messages}
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}

	data, err := json.Marshal(conv)
	if err != nil {
		return "", err
	}

	path, err := s.filePath(id)
	if err != nil {
		return "", err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	if err := util.AtomicWriteFile(path, data, 0644); err != nil {
		return "", err
	}

	return id, nil
}

// Load retrieves a conversation by id.
func (s *ConversationStore) Load(id string) (*Conversation, error) {
	path, err := s.filePath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, err
	}
	conv.ID = id
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}

	return &conv, nil
}

// Rename changes a conversation's name, preserving its messages.
func (s *ConversationStore) Rename(id, name string) error {
	conv, err := s.Load(id)
	if err != nil {
		return err
	}
	_, err = s.Save(id, name, conv.Messages)
	return err
}

// Delete removes a conversation by id. When the deleted conversation is
// the active one, the caller must clear its active-session state.
func (s *ConversationStore) Delete(id string) error {
	path, err := s.filePath(id)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrConversationNotFound
		}
		return err
	}
	return nil
}

// List returns metadata for every stored conversation. Order is
// directory iteration order and must not be relied on.
func (s *ConversationStore) List() ([]ConversationMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ConversationMeta{}, nil
		}
		return nil, err
	}

	metas := []ConversationMeta{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		conv, err := s.Load(id)
		if err != nil {
			continue // Skip corrupted files
		}
		metas = append(metas, ConversationMeta{ID: id, Name: conv.Name})
	}

	return metas, nil
}

// LoadAll returns every stored conversation in full, for callers that
// scan message content (conversation search). Corrupted files are
// skipped the same way List skips them.
func (s *ConversationStore) LoadAll() ([]*Conversation, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}

	convos := make([]*Conversation, 0, len(metas))
	for _, meta := range metas {
		conv, err := s.Load(meta.ID)
		if err != nil {
			continue
		}
		convos = append(convos, conv)
	}

	return convos, nil
}

// filePath returns the file path for a conversation id. Ids arrive
// from the client, so anything that would resolve outside BaseDir is
// rejected as not found.
func (s *ConversationStore) filePath(id string) (string, error) {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", ErrConversationNotFound
	}
	return filepath.Join(s.BaseDir, id+".json"), nil
}
