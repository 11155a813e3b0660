// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for the local Ollama API,
// which backs the generation capability.
package ollama

import (
	"context"

	"github.com/scriptwizard/obscyrus/internal/model"
)

// Generator binds a Client to one model, exposing the opaque
// generate(messages) -> text capability the chat layer consumes.
type Generator struct {
	client    *Client
	modelName string
}

// NewGenerator creates a generator for the given model name.
func NewGenerator(client *Client, modelName string) *Generator {
	return &Generator{client: client, modelName: modelName}
}

// ModelName returns the bound model name.
func (g *Generator) ModelName() string {
	return g.modelName
}

// Generate produces one completion for the ordered message list.
func (g *Generator) Generate(ctx context.Context, messages []model.Message) (string, error) {
	resp, err := g.client.Chat(ctx, g.modelName, messages)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}
