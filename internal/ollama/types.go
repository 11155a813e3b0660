// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API,
// which backs the generation capability.
package ollama

import (
	"time"

	"github.com/scriptwizard/obscyrus/internal/model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the request body for the /api/chat endpoint.
type ChatRequest struct {
	Model    string          `json:"model"`
	Messages []model.Message `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *Options        `json:"options,omitempty"`
}

// Options contains model parameters for inference.
type Options struct {
	NumCtx      int     `json:"num_ctx,omitempty"`     // Context window size
	NumGPU      int     `json:"num_gpu,omitempty"`     // GPU layers to offload
	Temperature float64 `json:"temperature,omitempty"` // 0.0-2.0
	NumPredict  int     `json:"num_predict,omitempty"` // Max tokens, -1 unlimited
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ChatResponse is the response from the /api/chat endpoint.
type ChatResponse struct {
	Model           string        `json:"model"`
	CreatedAt       time.Time     `json:"created_at"`
	Message         model.Message `json:"message"`
	Done            bool          `json:"done"`
	DoneReason      string        `json:"done_reason,omitempty"`
	TotalDuration   int64         `json:"total_duration,omitempty"`   // nanoseconds
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

// ModelInfo describes a model known to the Ollama server.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
	Digest     string    `json:"digest"`
}

// ListModelsResponse is the response from the /api/tags endpoint.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// APIError is the error payload the Ollama API returns on failure.
type APIError struct {
	Error string `json:"error"`
}
