// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store provides disk persistence for conversations, named code
// artifacts, and the upload workspace.
package store

// StoreError represents a storage-related error.
// It implements the error interface and can be compared using errors.Is.
type StoreError struct {
	Message string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing store errors.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// Sentinel errors for easy checking.
var (
	// ErrConversationNotFound is returned when a conversation doesn't exist.
	ErrConversationNotFound = &StoreError{Message: "conversation not found"}

	// ErrCodeNotFound is returned when a named code artifact doesn't exist.
	ErrCodeNotFound = &StoreError{Message: "code not found"}

	// ErrNameRequired is returned when a conversation is saved without a
	// name and no naming strategy is available to the caller.
	ErrNameRequired = &StoreError{Message: "conversation name required"}

	// ErrFilenameRequired is returned when a code operation is missing
	// its filename.
	ErrFilenameRequired = &StoreError{Message: "filename required"}
)
