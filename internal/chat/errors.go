// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the turn controller: it owns the active
// session state, builds generation context, and converts completions
// into the ordered client event sequence.
package chat

// SessionError represents a session-level error.
// It implements the error interface and can be compared using errors.Is.
type SessionError struct {
	Message string
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing session errors.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// Sentinel errors for easy checking.
var (
	// ErrNoModelLoaded is returned when a turn starts before any model
	// has been selected.
	ErrNoModelLoaded = &SessionError{Message: "no model loaded"}

	// ErrEmptyPrompt is returned when the prompt is empty or blank.
	ErrEmptyPrompt = &SessionError{Message: "no prompt provided"}

	// ErrModelBusy is returned when a model switch is attempted while a
	// turn is in flight, or a second turn starts before the first ends.
	ErrModelBusy = &SessionError{Message: "model busy: a turn is in flight"}
)
