// obscyrus - a local browser front-end for chatting with local LLMs.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/scriptwizard/obscyrus/internal/chat"
	"github.com/scriptwizard/obscyrus/internal/config"
	"github.com/scriptwizard/obscyrus/internal/ollama"
	"github.com/scriptwizard/obscyrus/internal/server"
	"github.com/scriptwizard/obscyrus/internal/store"
)

// Version information (set at build time)
var (
	Version   = "1.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe()
	case "fetch-model":
		err = runFetchModel(args)
	case "version":
		fmt.Printf("obscyrus %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`obscyrus - local browser chat for quantized models

Usage:
  obscyrus [serve]         Start the chat server (default)
  obscyrus fetch-model     Download the default GGUF into the models directory
  obscyrus version         Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Stores
	convos, err := store.NewConversationStore(cfg.Paths.ConvosDir)
	if err != nil {
		return fmt.Errorf("conversation store: %w", err)
	}
	codes, err := store.NewCodeStore(cfg.Paths.CodesDir)
	if err != nil {
		return fmt.Errorf("code store: %w", err)
	}
	workspace, err := store.NewWorkspaceStore(cfg.Paths.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("workspace store: %w", err)
	}

	// Model catalog with live rescan on directory changes
	catalog, err := store.NewModelCatalog(cfg.Paths.ModelsDir)
	if err != nil {
		return fmt.Errorf("model catalog: %w", err)
	}
	if err := catalog.Watch(); err != nil {
		log.Printf("MODEL_WATCH_UNAVAILABLE | error=%v", err)
	}
	defer catalog.Close()

	// Ollama backend
	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL: cfg.Ollama.URL,
		Timeout: cfg.OllamaTimeout(),
		NumCtx:  cfg.Ollama.NumCtx,
		NumGPU:  cfg.Ollama.NumGPU,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.CheckRunning(ctx); err != nil {
		log.Printf("OLLAMA_UNAVAILABLE | url=%s error=%v", cfg.Ollama.URL, err)
	}
	cancel()

	// Chat session
	factory := func(modelName string) (chat.Generator, error) {
		return ollama.NewGenerator(client, modelName), nil
	}
	session := chat.NewSession(convos, factory, chat.Options{
		TypingDelay:         cfg.TypingDelay(),
		NameFromFullHistory: cfg.Chat.NameFromFullHistory,
		MaxDerivedNameRunes: cfg.Chat.MaxDerivedNameRunes,
	})

	srv := server.NewServer(cfg, session, catalog, codes, workspace)

	// Graceful shutdown on SIGINT/SIGTERM
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	if cfg.Server.OpenBrowser {
		go openBrowser(cfg.BaseURL())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-sigCh:
		log.Printf("SIGNAL_RECEIVED | signal=%v", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// openBrowser opens the system browser at the given URL, after a
// short delay so the listener is up first.
func openBrowser(url string) {
	time.Sleep(time.Second)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Printf("BROWSER_OPEN_FAILED | url=%s error=%v", url, err)
	}
}
