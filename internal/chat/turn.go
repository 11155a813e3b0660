// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/scriptwizard/obscyrus/internal/model"
	"github.com/scriptwizard/obscyrus/internal/segment"
)

// TurnInput carries one user prompt into a turn.
type TurnInput struct {
	// Prompt is the raw user prompt, possibly starting with a
	// reserved token.
	Prompt string

	// CurrentCode is the code currently open in the client. It is
	// appended to the prompt when the /edit token is present.
	CurrentCode string
}

// RunTurn executes one full request/response turn: it validates
// preconditions, records the user message, generates a completion,
// segments it, and emits the ordered event sequence through emit.
//
// Precondition failures return before the user message is appended,
// leaving history untouched. A generation failure emits a single
// error event and returns; the user message stays in history so the
// prompt can be retried. Every emitted sequence, success or failure,
// ends the turn; end_response is emitted only on success.
func (s *Session) RunTurn(ctx context.Context, in TurnInput, emit Emitter) error {
	prompt := strings.TrimSpace(in.Prompt)

	s.mu.Lock()
	if s.turnInFlight {
		s.mu.Unlock()
		return ErrModelBusy
	}
	if s.gen == nil {
		s.mu.Unlock()
		return s.failTurn(emit, ErrNoModelLoaded)
	}
	if prompt == "" {
		s.mu.Unlock()
		return s.failTurn(emit, ErrEmptyPrompt)
	}

	gen := s.gen
	systemPrompt := systemPromptBase

	// /search pulls matching lines from saved conversations into the
	// system prompt for this turn only.
	if query, ok := strings.CutPrefix(prompt, SearchToken); ok {
		if sctx := s.searchContextLocked(query); sctx != "" {
			systemPrompt += searchContextHeader + sctx
		}
	}

	// /edit carries the client's current code into the recorded
	// prompt so the exchange is self-contained when persisted.
	userText := prompt
	if strings.HasPrefix(prompt, EditToken) && strings.TrimSpace(in.CurrentCode) != "" {
		userText = prompt + editBlockHeader + in.CurrentCode
	}

	s.history = append(s.history, model.NewUserMessage(userText))
	messages := make([]model.Message, 0, len(s.history)+1)
	messages = append(messages, model.NewSystemMessage(systemPrompt))
	messages = append(messages, s.history...)

	s.turnInFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.turnInFlight = false
		s.mu.Unlock()
	}()

	started := time.Now()
	raw, err := gen.Generate(ctx, messages)
	if err != nil {
		log.Printf("TURN_GENERATE_FAILED | model=%s error=%v", gen.ModelName(), err)
		return s.failTurn(emit, fmt.Errorf("generation failed: %w", err))
	}
	log.Printf("TURN_GENERATED | model=%s elapsed=%s chars=%d",
		gen.ModelName(), time.Since(started).Round(time.Millisecond), len(raw))

	if err := s.emitSegments(ctx, raw, emit); err != nil {
		return err
	}

	s.mu.Lock()
	s.history = append(s.history, model.NewAssistantMessage(raw))
	s.mu.Unlock()

	return emit.Emit(Event{Name: EventEndResponse})
}

// emitSegments converts a segmented response into the client event
// stream: explanation word tokens, an optional code event, then any
// trailing text as further word tokens.
func (s *Session) emitSegments(ctx context.Context, raw string, emit Emitter) error {
	res := segment.Split(raw)

	if err := s.emitWords(ctx, res.Explanation, emit); err != nil {
		return err
	}

	if res.HasCode() {
		data := CodeData{Code: res.Code.Text, Lang: res.Code.Language}
		if err := emit.Emit(Event{Name: EventCode, Data: data}); err != nil {
			return err
		}
	}

	if res.Trailing != "" {
		// Trailing text resumes on its own paragraph; the break is a
		// standalone token so the client can treat it as a marker.
		if res.Explanation != "" || res.HasCode() {
			ev := Event{Name: EventTextToken, Data: TextTokenData{Token: "\n\n"}}
			if err := emit.Emit(ev); err != nil {
				return err
			}
		}
		if err := s.emitWords(ctx, res.Trailing, emit); err != nil {
			return err
		}
	}
	return nil
}

// emitWords streams text word by word with the configured typing
// delay. Cancellation stops the stream between tokens.
func (s *Session) emitWords(ctx context.Context, text string, emit Emitter) error {
	if text == "" {
		return nil
	}

	words := strings.Fields(text)
	for i, word := range words {
		token := word + " "
		if err := emit.Emit(Event{Name: EventTextToken, Data: TextTokenData{Token: token}}); err != nil {
			return err
		}

		if s.opts.TypingDelay > 0 && i < len(words)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.opts.TypingDelay):
			}
		}
	}
	return nil
}

// failTurn reports err to the client as a single error event and
// returns err to the caller.
func (s *Session) failTurn(emit Emitter, err error) error {
	ev := Event{Name: EventError, Data: ErrorData{Message: userMessage(err)}}
	if emitErr := emit.Emit(ev); emitErr != nil {
		return emitErr
	}
	return err
}

// userMessage maps an error to the text shown to the client.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrNoModelLoaded):
		return "No model loaded. Select a model first."
	case errors.Is(err, ErrEmptyPrompt):
		return "No prompt provided."
	case errors.Is(err, context.Canceled):
		return "Generation canceled."
	default:
		return err.Error()
	}
}
