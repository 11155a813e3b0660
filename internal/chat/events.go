// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the turn controller: it owns the active
// session state, builds generation context, and converts completions
// into the ordered client event sequence.
package chat

// Event names carried over the push channel. The names are the
// contract with the browser client; the transport framing is the
// server package's concern.
const (
	EventTextToken   = "text_token"
	EventCode        = "code"
	EventEndResponse = "end_response"
	EventError       = "error"
)

// Event is one client-visible event produced during a chat turn.
type Event struct {
	Name string
	Data any
}

// TextTokenData carries one word of simulated typing. Each token ends
// with a single trailing space so the client reconstructs spacing by
// plain concatenation; a paragraph break is the token "\n\n".
type TextTokenData struct {
	Token string `json:"token"`
}

// CodeData carries the extracted code block.
type CodeData struct {
	Code string `json:"code"`
	Lang string `json:"lang"`
}

// ErrorData carries a human-readable failure cause.
type ErrorData struct {
	Message string `json:"message"`
}

// Emitter delivers events to the connected client, in order. Emit
// returning an error aborts the remaining sequence of a turn.
type Emitter interface {
	Emit(event Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(Event) error

// Emit implements Emitter.
func (f EmitterFunc) Emit(e Event) error {
	return f(e)
}
