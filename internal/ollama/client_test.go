// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scriptwizard/obscyrus/internal/model"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClientWithConfig(&ClientConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		NumCtx:  2048,
		NumGPU:  1,
	})
}

func TestCheckRunning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Ollama is running"))
	}))
	defer srv.Close()

	if err := newTestClient(srv).CheckRunning(context.Background()); err != nil {
		t.Errorf("CheckRunning failed: %v", err)
	}
}

func TestCheckRunningNotReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Closed before use

	err := newTestClient(srv).CheckRunning(context.Background())
	if !errors.Is(err, ErrNotRunning) {
		t.Errorf("CheckRunning = %v, want ErrNotRunning", err)
	}
}

func TestChatSendsModelAndOptions(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("Path = %q, want /api/chat", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode request: %v", err)
		}
		json.NewEncoder(w).Encode(ChatResponse{
			Model:   got.Model,
			Message: model.Message{Role: model.RoleAssistant, Content: "pong"},
			Done:    true,
		})
	}))
	defer srv.Close()

	client := newTestClient(srv)
	resp, err := client.Chat(context.Background(), "llama3.gguf", []model.Message{
		{Role: model.RoleUser, Content: "ping"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if resp.Message.Content != "pong" {
		t.Errorf("Content = %q, want %q", resp.Message.Content, "pong")
	}
	if got.Model != "llama3.gguf" {
		t.Errorf("Request model = %q, want %q", got.Model, "llama3.gguf")
	}
	if got.Stream {
		t.Error("Stream = true, want false")
	}
	if got.Options == nil || got.Options.NumCtx != 2048 {
		t.Errorf("Options = %+v, want NumCtx 2048", got.Options)
	}
}

func TestChatModelNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "ghost", nil)
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Chat = %v, want ErrModelNotFound", err)
	}
}

func TestChatSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(APIError{Error: "model requires more memory"})
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Chat(context.Background(), "big", nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("Chat error type = %T, want *ClientError", err)
	}
	if clientErr.Message != "model requires more memory" {
		t.Errorf("Message = %q", clientErr.Message)
	}
}

func TestChatContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The server only notices the client disconnect (and cancels the
		// request context) once the request body has been consumed.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := newTestClient(srv).Chat(ctx, "slow", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Chat = %v, want context.Canceled", err)
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("Path = %q, want /api/tags", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ListModelsResponse{Models: []ModelInfo{
			{Name: "llama3:8b"},
			{Name: "phi3:mini"},
		}})
	}))
	defer srv.Close()

	models, err := newTestClient(srv).ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("ListModels = %d entries, want 2", len(models))
	}
	if models[0].Name != "llama3:8b" {
		t.Errorf("models[0].Name = %q", models[0].Name)
	}
}

func TestGeneratorUsesBoundModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		json.NewEncoder(w).Encode(ChatResponse{
			Message: model.Message{Role: model.RoleAssistant, Content: "bound to " + req.Model},
			Done:    true,
		})
	}))
	defer srv.Close()

	gen := NewGenerator(newTestClient(srv), "mistral.gguf")
	if gen.ModelName() != "mistral.gguf" {
		t.Errorf("ModelName = %q", gen.ModelName())
	}

	text, err := gen.Generate(context.Background(), []model.Message{
		{Role: model.RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "bound to mistral.gguf" {
		t.Errorf("Generate = %q", text)
	}
}
