// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scriptwizard/obscyrus/internal/chat"
	"github.com/scriptwizard/obscyrus/internal/store"
)

// Server-to-client event names beyond the turn events defined in the
// chat package.
const (
	eventSuccess      = "success"
	eventConvoList    = "convo_list"
	eventConvoLoaded  = "convo_loaded"
	eventConvoSaved   = "convo_saved"
	eventConvoRenamed = "convo_renamed"
	eventConvoDeleted = "convo_deleted"
)

const (
	// wsWriteWait bounds a single frame write.
	wsWriteWait = 10 * time.Second

	// wsPongWait is how long the connection survives without a pong.
	wsPongWait = 60 * time.Second

	// wsPingPeriod is the keepalive ping interval. Must be shorter
	// than wsPongWait.
	wsPingPeriod = 50 * time.Second

	// wsMaxMessageSize bounds an inbound client frame.
	wsMaxMessageSize = 10 * 1024 * 1024
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The server binds loopback; the UI is served from the same origin.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientMessage is one inbound frame: an event name plus its payload.
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// wsConn wraps a websocket connection with a write lock so that turn
// events and keepalive pings never interleave mid-frame.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Emit sends one event frame. Implements chat.Emitter.
func (c *wsConn) Emit(ev chat.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	frame := map[string]any{"event": ev.Name}
	if ev.Data != nil {
		frame["data"] = ev.Data
	}
	return c.conn.WriteJSON(frame)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// handleWS upgrades the connection and runs the event loop. Client
// events are handled sequentially per connection; a chat turn blocks
// the loop until its event sequence completes, matching the one-turn
// invariant of the session.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WS_UPGRADE_FAILED | ip=%s error=%v", GetClientIP(r), err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsMaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	client := &wsConn{conn: conn}
	log.Printf("WS_CONNECTED | ip=%s", GetClientIP(r))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Keepalive pinger.
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WS_READ_FAILED | ip=%s error=%v", GetClientIP(r), err)
			}
			return
		}
		// A chat turn can outlast the pong window (generation runs up
		// to the Ollama timeout), and no pong is read while dispatch
		// blocks the loop. Suspend the deadline for the duration and
		// arm it again before the next read.
		conn.SetReadDeadline(time.Time{})
		s.dispatchEvent(ctx, client, msg)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
	}
}

// dispatchEvent routes one client event to the session.
func (s *Server) dispatchEvent(ctx context.Context, client *wsConn, msg clientMessage) {
	switch msg.Event {
	case "select_model":
		s.wsSelectModel(client, msg.Data)
	case "convo_list":
		s.wsConvoList(client)
	case "convo_create":
		s.wsConvoCreate(client)
	case "convo_load":
		s.wsConvoLoad(client, msg.Data)
	case "convo_save":
		s.wsConvoSave(ctx, client, msg.Data)
	case "convo_rename":
		s.wsConvoRename(client, msg.Data)
	case "convo_delete":
		s.wsConvoDelete(client, msg.Data)
	case "chat":
		s.wsChat(ctx, client, msg.Data)
	default:
		log.Printf("WS_UNKNOWN_EVENT | event=%q", msg.Event)
		s.emitError(client, "Unknown event")
	}
}

// ============================================================================
// MODEL EVENTS
// ============================================================================

func (s *Server) wsSelectModel(client *wsConn, data json.RawMessage) {
	var req struct {
		Model string `json:"model"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Model == "" {
		s.emitError(client, "No model selected")
		return
	}
	if !s.catalog.Contains(req.Model) {
		s.emitError(client, "Invalid model")
		return
	}

	if err := s.session.SelectModel(req.Model); err != nil {
		log.Printf("MODEL_SELECT_FAILED | model=%s error=%v", req.Model, err)
		s.emitError(client, "Error loading model: "+err.Error())
		return
	}

	log.Printf("MODEL_SELECTED | model=%s", req.Model)
	client.Emit(chat.Event{Name: eventSuccess, Data: map[string]string{
		"message": "Loaded text model: " + req.Model,
		"type":    "text",
	}})
}

// ============================================================================
// CONVERSATION EVENTS
// ============================================================================

func (s *Server) wsConvoList(client *wsConn) {
	convos, err := s.session.ListConversations()
	if err != nil {
		log.Printf("CONVO_LIST_FAILED | error=%v", err)
		s.emitError(client, "Could not list conversations")
		return
	}
	client.Emit(chat.Event{Name: eventConvoList, Data: map[string]any{"convos": convos}})
}

func (s *Server) wsConvoCreate(client *wsConn) {
	if err := s.session.NewConversation(); err != nil {
		s.emitError(client, err.Error())
		return
	}
	client.Emit(chat.Event{Name: eventConvoLoaded, Data: map[string]any{
		"id":       nil,
		"name":     "New Conversation",
		"messages": []struct{}{},
	}})
}

func (s *Server) wsConvoLoad(client *wsConn, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.emitError(client, "Conversation not found")
		return
	}

	convo, err := s.session.LoadConversation(req.ID)
	if err != nil {
		if !errors.Is(err, store.ErrConversationNotFound) {
			log.Printf("CONVO_LOAD_FAILED | id=%s error=%v", req.ID, err)
		}
		s.emitError(client, "Conversation not found")
		return
	}

	client.Emit(chat.Event{Name: eventConvoLoaded, Data: map[string]any{
		"id":       convo.ID,
		"name":     convo.Name,
		"messages": convo.Messages,
	}})
}

func (s *Server) wsConvoSave(ctx context.Context, client *wsConn, data json.RawMessage) {
	var req struct {
		Name string `json:"name"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			s.emitError(client, "Invalid request")
			return
		}
	}

	meta, err := s.session.SaveConversation(ctx, req.Name)
	if err != nil {
		log.Printf("CONVO_SAVE_FAILED | error=%v", err)
		s.emitError(client, "Could not save conversation")
		return
	}

	client.Emit(chat.Event{Name: eventConvoSaved, Data: map[string]string{
		"id":   meta.ID,
		"name": meta.Name,
	}})
	s.wsConvoList(client)
}

func (s *Server) wsConvoRename(client *wsConn, data json.RawMessage) {
	var req struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" || req.Name == "" {
		s.emitError(client, "Conversation not found")
		return
	}

	if err := s.session.RenameConversation(req.ID, req.Name); err != nil {
		if !errors.Is(err, store.ErrConversationNotFound) {
			log.Printf("CONVO_RENAME_FAILED | id=%s error=%v", req.ID, err)
		}
		s.emitError(client, "Conversation not found")
		return
	}

	client.Emit(chat.Event{Name: eventConvoRenamed, Data: map[string]string{
		"id":   req.ID,
		"name": req.Name,
	}})
	s.wsConvoList(client)
}

func (s *Server) wsConvoDelete(client *wsConn, data json.RawMessage) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil || req.ID == "" {
		s.emitError(client, "Conversation not found")
		return
	}

	if err := s.session.DeleteConversation(req.ID); err != nil {
		if !errors.Is(err, store.ErrConversationNotFound) {
			log.Printf("CONVO_DELETE_FAILED | id=%s error=%v", req.ID, err)
		}
		s.emitError(client, "Conversation not found")
		return
	}

	client.Emit(chat.Event{Name: eventConvoDeleted, Data: map[string]string{"id": req.ID}})
	s.wsConvoList(client)
}

// ============================================================================
// CHAT EVENT
// ============================================================================

func (s *Server) wsChat(ctx context.Context, client *wsConn, data json.RawMessage) {
	var req struct {
		Prompt      string `json:"prompt"`
		CurrentCode string `json:"current_code"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.emitError(client, "Invalid request")
		return
	}

	in := chat.TurnInput{Prompt: req.Prompt, CurrentCode: req.CurrentCode}
	if err := s.session.RunTurn(ctx, in, client); err != nil {
		// The error event has already been emitted where one applies;
		// a busy session gets an explicit notice here.
		if errors.Is(err, chat.ErrModelBusy) {
			s.emitError(client, "A response is already in progress")
		}
	}
}

func (s *Server) emitError(client *wsConn, message string) {
	client.Emit(chat.Event{Name: chat.EventError, Data: chat.ErrorData{Message: message}})
}
