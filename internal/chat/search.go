// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"log"
	"strings"

	"github.com/scriptwizard/obscyrus/internal/store"
)

// searchContextLocked builds the /search context block for a query by
// scanning every saved conversation. Matching is a case-insensitive
// substring test over message content. Returns "" when nothing
// matches. Caller holds s.mu.
func (s *Session) searchContextLocked(query string) string {
	convos, err := s.convos.LoadAll()
	if err != nil {
		log.Printf("SEARCH_LOAD_FAILED | error=%v", err)
		return ""
	}
	return SearchContext(query, convos)
}

// SearchContext renders matching messages from the given
// conversations as context lines, one per match, attributed to the
// conversation they came from. A blank query matches nothing.
func SearchContext(query string, convos []*store.Conversation) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return ""
	}
	needle := strings.ToLower(query)

	var b strings.Builder
	for _, convo := range convos {
		for _, msg := range convo.Messages {
			if !strings.Contains(strings.ToLower(msg.Content), needle) {
				continue
			}
			b.WriteString("From conversation ")
			b.WriteString(convo.Name)
			b.WriteString(": ")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		}
	}
	return b.String()
}
