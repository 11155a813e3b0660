// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/scriptwizard/obscyrus/internal/config"
)

// Default model published alongside the project. Override with flags
// to pull a different GGUF.
const (
	defaultModelRepo = "ScriptWizarddd/Obscyrus-8B-ClaudeFT"
	defaultModelFile = "Obscyrus1-8B-ClaudeFT.gguf"
)

// runFetchModel downloads a GGUF from Hugging Face into the models
// directory so the server has something to offer on first run.
// A HF_TOKEN environment variable is sent as a bearer token when set;
// public repos work without one.
func runFetchModel(args []string) error {
	fs := flag.NewFlagSet("fetch-model", flag.ExitOnError)
	repo := fs.String("repo", defaultModelRepo, "Hugging Face repository id")
	file := fs.String("file", defaultModelFile, "file to download from the repository")
	dir := fs.String("dir", "", "destination directory (default: configured models directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	destDir := *dir
	if destDir == "" {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		destDir = cfg.Paths.ModelsDir
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create models directory: %w", err)
	}

	destPath := filepath.Join(destDir, filepath.Base(*file))
	if _, err := os.Stat(destPath); err == nil {
		fmt.Printf("Already present: %s\n", destPath)
		return nil
	}

	url := fmt.Sprintf("https://huggingface.co/%s/resolve/main/%s", *repo, *file)
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token := os.Getenv("HF_TOKEN"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		fmt.Println("No HF_TOKEN set, assuming public repository access.")
	}

	// No client timeout here. Multi-gigabyte GGUFs on home connections
	// take however long they take; ctrl-c aborts cleanly.
	log.Printf("MODEL_FETCH_START | repo=%s file=%s", *repo, *file)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	// Stream to a .part file and rename on success so a killed
	// download never leaves a truncated GGUF in the catalog.
	partPath := destPath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return err
	}

	start := time.Now()
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(partPath)
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := os.Rename(partPath, destPath); err != nil {
		os.Remove(partPath)
		return err
	}

	log.Printf("MODEL_FETCH_COMPLETE | file=%s bytes=%d duration=%.1fs",
		filepath.Base(destPath), n, time.Since(start).Seconds())
	fmt.Printf("Model downloaded to: %s\n", destPath)
	return nil
}
