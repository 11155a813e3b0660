// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides the HTTP and WebSocket front-end for a
// local chat session.
//
// Endpoints:
//   - GET  /                        - front-end page
//   - GET  /static/                 - front-end assets
//   - GET  /ws                      - persistent WebSocket event channel
//   - GET  /api/models              - list available models
//   - POST /api/save_code           - save a code artifact
//   - GET  /api/codes               - list saved code artifacts
//   - POST /api/rename_code         - rename a code artifact
//   - POST /api/delete_code         - delete a code artifact
//   - POST /api/get_code            - read a code artifact
//   - POST /api/upload_workspace    - replace the workspace mirror
//   - GET  /api/workspace_files     - list workspace files
//   - POST /api/get_workspace_code  - read a workspace file
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/scriptwizard/obscyrus/internal/chat"
	"github.com/scriptwizard/obscyrus/internal/config"
	"github.com/scriptwizard/obscyrus/internal/store"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize is the maximum size for a JSON request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxWorkspaceUploadSize is the maximum size for a workspace upload (50MB).
	MaxWorkspaceUploadSize = 50 * 1024 * 1024

	// Version is the server version.
	Version = "1.1.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the HTTP front-end. It serves the UI, the JSON API for
// code artifacts and the workspace mirror, and upgrades /ws to the
// persistent event channel.
type Server struct {
	cfg    *config.Config
	router *http.ServeMux
	server *http.Server

	session   *chat.Session
	catalog   *store.ModelCatalog
	codes     *store.CodeStore
	workspace *store.WorkspaceStore
}

// NewServer creates a Server wired to the given session and stores.
func NewServer(cfg *config.Config, session *chat.Session, catalog *store.ModelCatalog, codes *store.CodeStore, workspace *store.WorkspaceStore) *Server {
	s := &Server{
		cfg:       cfg,
		router:    http.NewServeMux(),
		session:   session,
		catalog:   catalog,
		codes:     codes,
		workspace: workspace,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Front-end
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.Handle("GET /static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(filepath.Join(s.cfg.Server.StaticDir, "static")))))

	// Event channel
	s.router.HandleFunc("GET /ws", s.handleWS)

	// Models
	s.router.HandleFunc("GET /api/models", s.handleModels)

	// Code artifacts
	s.router.HandleFunc("POST /api/save_code", s.handleSaveCode)
	s.router.HandleFunc("GET /api/codes", s.handleListCodes)
	s.router.HandleFunc("POST /api/rename_code", s.handleRenameCode)
	s.router.HandleFunc("POST /api/delete_code", s.handleDeleteCode)
	s.router.HandleFunc("POST /api/get_code", s.handleGetCode)

	// Workspace mirror
	s.router.HandleFunc("POST /api/upload_workspace", s.handleUploadWorkspace)
	s.router.HandleFunc("GET /api/workspace_files", s.handleWorkspaceFiles)
	s.router.HandleFunc("POST /api/get_workspace_code", s.handleGetWorkspaceCode)
}

// handleIndex serves the front-end page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(s.cfg.Server.StaticDir, "index.html"))
}

// ============================================================================
// MODELS HANDLER
// ============================================================================

// handleModels handles GET /api/models.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"models": s.catalog.List(),
	})
}

// ============================================================================
// CODE ARTIFACT HANDLERS
// ============================================================================

type saveCodeRequest struct {
	Code     string `json:"code"`
	Filename string `json:"filename"`
}

// handleSaveCode handles POST /api/save_code.
func (s *Server) handleSaveCode(w http.ResponseWriter, r *http.Request) {
	var req saveCodeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "Code and filename required")
		return
	}

	if err := s.codes.Save(req.Filename, req.Code); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Code saved to %s", req.Filename),
	})
}

// handleListCodes handles GET /api/codes.
func (s *Server) handleListCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := s.codes.List()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

type renameCodeRequest struct {
	OldFilename string `json:"old_filename"`
	NewFilename string `json:"new_filename"`
}

// handleRenameCode handles POST /api/rename_code.
func (s *Server) handleRenameCode(w http.ResponseWriter, r *http.Request) {
	var req renameCodeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.OldFilename == "" || req.NewFilename == "" {
		s.writeError(w, http.StatusBadRequest, "Old and new filenames required")
		return
	}

	if err := s.codes.Rename(req.OldFilename, req.NewFilename); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Code renamed"})
}

type filenameRequest struct {
	Filename string `json:"filename"`
}

// handleDeleteCode handles POST /api/delete_code.
func (s *Server) handleDeleteCode(w http.ResponseWriter, r *http.Request) {
	var req filenameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "Filename required")
		return
	}

	if err := s.codes.Delete(req.Filename); err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Code deleted"})
}

// handleGetCode handles POST /api/get_code.
func (s *Server) handleGetCode(w http.ResponseWriter, r *http.Request) {
	var req filenameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "Filename required")
		return
	}

	code, err := s.codes.Read(req.Filename)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"code": code.Content,
		"lang": code.Type,
	})
}

// ============================================================================
// WORKSPACE HANDLERS
// ============================================================================

// handleUploadWorkspace handles POST /api/upload_workspace. The
// upload is a multipart form carrying the full directory under
// "files[]"; the previous workspace content is discarded wholesale.
func (s *Server) handleUploadWorkspace(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxWorkspaceUploadSize)

	if err := r.ParseMultipartForm(MaxWorkspaceUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid multipart upload")
		return
	}

	uploads := r.MultipartForm.File["files[]"]
	files := make([]store.WorkspaceFile, 0, len(uploads))
	for _, header := range uploads {
		f, err := header.Open()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid multipart upload")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "Invalid multipart upload")
			return
		}
		files = append(files, store.WorkspaceFile{Path: header.Filename, Data: data})
	}

	if err := s.workspace.ReplaceAll(files); err != nil {
		s.writeStoreError(w, err)
		return
	}
	log.Printf("WORKSPACE_UPLOADED | files=%d", len(files))
	s.writeJSON(w, http.StatusOK, map[string]string{"message": "Workspace uploaded"})
}

// handleWorkspaceFiles handles GET /api/workspace_files.
func (s *Server) handleWorkspaceFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.workspace.List()
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

// handleGetWorkspaceCode handles POST /api/get_workspace_code.
func (s *Server) handleGetWorkspaceCode(w http.ResponseWriter, r *http.Request) {
	var req filenameRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		s.writeError(w, http.StatusBadRequest, "Filename required")
		return
	}

	code, err := s.workspace.Read(req.Filename)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"code": code.Content,
		"lang": code.Type,
	})
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(NewRateLimiter(s.cfg.Server.RateLimitPerSec, s.cfg.Server.RateLimitBurst)),
	)(s.router)

	s.server = &http.Server{
		Addr:        s.cfg.Addr(),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", s.cfg.Addr(), Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")
	return s.server.Shutdown(ctx)
}

// Handler returns the routed handler without the middleware chain.
// Used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeJSON parses a JSON request body into v, writing the error
// response itself on failure.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("Request body exceeds maximum size of %d bytes", MaxRequestBodySize))
			return false
		}
		log.Printf("BAD_REQUEST_BODY | path=%s error=%v", r.URL.Path, err)
		s.writeError(w, http.StatusBadRequest, "Invalid request format")
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps a store error to the right HTTP status.
func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrCodeNotFound), errors.Is(err, store.ErrConversationNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrFilenameRequired), errors.Is(err, store.ErrNameRequired):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("STORE_ERROR | error=%v", err)
		s.writeError(w, http.StatusInternalServerError, "Request processing failed. Please try again.")
	}
}
