// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/scriptwizard/obscyrus/internal/model"
	"github.com/scriptwizard/obscyrus/internal/util"
)

// deriveName produces a conversation name by asking the bound model
// to summarize the history. When no model is bound, the history is
// empty, or summarization fails, a timestamp name is used instead so
// a save never fails over a missing name.
func (s *Session) deriveName(ctx context.Context, gen Generator, history []model.Message) string {
	if gen == nil || len(history) == 0 {
		return fallbackName()
	}

	messages := []model.Message{model.NewSystemMessage(summaryPrompt)}
	if s.opts.NameFromFullHistory {
		messages = append(messages, history...)
	} else {
		for _, msg := range history {
			if msg.Role == model.RoleUser {
				messages = append(messages, msg)
				break
			}
		}
	}

	raw, err := gen.Generate(ctx, messages)
	if err != nil {
		log.Printf("NAME_DERIVE_FAILED | model=%s error=%v", gen.ModelName(), err)
		return fallbackName()
	}

	name := sanitizeName(raw)
	if name == "" {
		return fallbackName()
	}
	return util.TruncateRunes(name, s.opts.MaxDerivedNameRunes)
}

// sanitizeName collapses a model summary onto one clean line safe to
// use as a display name and filename stem.
func sanitizeName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = name[:i]
	}
	name = strings.Trim(name, `"'.`)
	return strings.Join(strings.Fields(name), " ")
}

func fallbackName() string {
	return "Conversation " + time.Now().Format("2006-01-02 15:04:05")
}
