// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/scriptwizard/obscyrus/internal/model"
	"github.com/scriptwizard/obscyrus/internal/store"
)

// ============================================================================
// Generator
// ============================================================================

// Generator produces a complete assistant response for a message
// history. A Generator is bound to a single model.
type Generator interface {
	// Generate runs a blocking completion. The context controls
	// cancellation; a canceled context returns context.Canceled.
	Generate(ctx context.Context, messages []model.Message) (string, error)

	// ModelName reports the name of the bound model.
	ModelName() string
}

// GeneratorFactory creates a Generator for a named model. The session
// calls it on select_model so that swapping models never requires a
// restart.
type GeneratorFactory func(modelName string) (Generator, error)

// ============================================================================
// Session
// ============================================================================

// Options tunes session behavior.
type Options struct {
	// TypingDelay is the pause between emitted text tokens. Zero
	// disables pacing.
	TypingDelay time.Duration

	// NameFromFullHistory controls whether name derivation feeds the
	// whole message history to the summarizer or only the first user
	// prompt.
	NameFromFullHistory bool

	// MaxDerivedNameRunes caps a derived conversation name.
	MaxDerivedNameRunes int
}

// DefaultOptions returns the session defaults.
func DefaultOptions() Options {
	return Options{
		TypingDelay:         45 * time.Millisecond,
		NameFromFullHistory: true,
		MaxDerivedNameRunes: 60,
	}
}

// Session is the single chat session behind the client channel. It
// guards the active conversation, its in-memory history, and the
// bound generator. One turn runs at a time; state-mutating calls
// while a turn is in flight fail with ErrModelBusy.
type Session struct {
	mu           sync.Mutex
	convos       *store.ConversationStore
	gen          Generator
	newGenerator GeneratorFactory
	activeID     string
	activeName   string
	history      []model.Message
	turnInFlight bool
	opts         Options
}

// NewSession creates a session with no model bound and no active
// conversation.
func NewSession(convos *store.ConversationStore, factory GeneratorFactory, opts Options) *Session {
	if opts.MaxDerivedNameRunes <= 0 {
		opts.MaxDerivedNameRunes = DefaultOptions().MaxDerivedNameRunes
	}
	return &Session{
		convos:       convos,
		newGenerator: factory,
		opts:         opts,
	}
}

// SelectModel binds the session to a named model, replacing any
// previous binding. Conversation state is unaffected. Fails with
// ErrModelBusy while a turn is in flight.
func (s *Session) SelectModel(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turnInFlight {
		return ErrModelBusy
	}

	gen, err := s.newGenerator(name)
	if err != nil {
		return err
	}
	s.gen = gen
	return nil
}

// ModelName reports the currently bound model, or "" when none is
// bound.
func (s *Session) ModelName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == nil {
		return ""
	}
	return s.gen.ModelName()
}

// ============================================================================
// Conversation lifecycle
// ============================================================================

// NewConversation resets the session to an empty, unsaved
// conversation. The bound model is kept.
func (s *Session) NewConversation() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turnInFlight {
		return ErrModelBusy
	}

	s.activeID = ""
	s.activeName = ""
	s.history = nil
	return nil
}

// LoadConversation makes a stored conversation the active one,
// replacing the in-memory history wholesale.
func (s *Session) LoadConversation(id string) (*store.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.turnInFlight {
		return nil, ErrModelBusy
	}

	convo, err := s.convos.Load(id)
	if err != nil {
		return nil, err
	}

	s.activeID = convo.ID
	s.activeName = convo.Name
	s.history = append([]model.Message(nil), convo.Messages...)
	return convo, nil
}

// SaveConversation persists the active history under the given name.
// A blank name is derived by summarizing the conversation with the
// bound model; when no model is bound, a timestamp name is used.
// Saving an already-saved conversation overwrites it in place.
func (s *Session) SaveConversation(ctx context.Context, name string) (store.ConversationMeta, error) {
	s.mu.Lock()
	if s.turnInFlight {
		s.mu.Unlock()
		return store.ConversationMeta{}, ErrModelBusy
	}
	history := append([]model.Message(nil), s.history...)
	gen := s.gen
	id := s.activeID
	existing := s.activeName
	s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		name = existing
	}
	if name == "" {
		name = s.deriveName(ctx, gen, history)
	}

	savedID, err := s.convos.Save(id, name, history)
	if err != nil {
		return store.ConversationMeta{}, err
	}

	s.mu.Lock()
	s.activeID = savedID
	s.activeName = name
	s.mu.Unlock()

	return store.ConversationMeta{ID: savedID, Name: name}, nil
}

// RenameConversation renames a stored conversation. If it is the
// active one, the in-memory name follows.
func (s *Session) RenameConversation(id, name string) error {
	if err := s.convos.Rename(id, name); err != nil {
		return err
	}

	s.mu.Lock()
	if s.activeID == id {
		s.activeName = strings.TrimSpace(name)
	}
	s.mu.Unlock()
	return nil
}

// DeleteConversation removes a stored conversation. Deleting the
// active one resets the session to no conversation at all: identity
// and the in-memory history are both cleared.
func (s *Session) DeleteConversation(id string) error {
	if err := s.convos.Delete(id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.activeID == id {
		s.activeID = ""
		s.activeName = ""
		s.history = nil
	}
	s.mu.Unlock()
	return nil
}

// ListConversations lists stored conversations.
func (s *Session) ListConversations() ([]store.ConversationMeta, error) {
	return s.convos.List()
}

// ActiveConversation reports the active conversation's identity, or
// ("", "") when the session is on an unsaved conversation.
func (s *Session) ActiveConversation() (id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID, s.activeName
}

// History returns a copy of the in-memory message history.
func (s *Session) History() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Message(nil), s.history...)
}
