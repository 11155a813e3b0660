// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for obscyrus.
//
// Supports TOML configuration with sensible defaults, environment
// variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - OBSCYRUS_CONFIG environment variable
//   - ~/.obscyrus/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete obscyrus configuration.
type Config struct {
	// Server settings
	Server ServerConfig `toml:"server"`

	// Paths to the on-disk stores
	Paths PathsConfig `toml:"paths"`

	// Ollama backend configuration
	Ollama OllamaConfig `toml:"ollama"`

	// Chat behavior configuration
	Chat ChatConfig `toml:"chat"`
}

// ServerConfig contains the HTTP/WebSocket listener configuration.
type ServerConfig struct {
	// Host is the listen address. Bind loopback unless you know
	// what you are doing; the server has no authentication.
	Host string `toml:"host"`
	// Port is the listen port.
	Port int `toml:"port"`
	// OpenBrowser opens the local browser at the UI URL on startup.
	OpenBrowser bool `toml:"open_browser"`
	// RateLimitPerSec caps requests per second per client IP (0 = unlimited).
	RateLimitPerSec float64 `toml:"rate_limit_per_sec"`
	// RateLimitBurst is the per-client burst allowance.
	RateLimitBurst int `toml:"rate_limit_burst"`
	// StaticDir is the directory holding the front-end assets.
	StaticDir string `toml:"static_dir"`
}

// PathsConfig contains the store directories. Relative paths are
// resolved against the data directory.
type PathsConfig struct {
	// DataDir is the base data directory (default ~/.obscyrus).
	DataDir string `toml:"data_dir"`
	// ModelsDir holds .gguf model files.
	ModelsDir string `toml:"models_dir"`
	// ConvosDir holds one JSON file per saved conversation.
	ConvosDir string `toml:"convos_dir"`
	// CodesDir holds saved code artifacts.
	CodesDir string `toml:"codes_dir"`
	// WorkspaceDir holds the uploaded workspace mirror.
	WorkspaceDir string `toml:"workspace_dir"`
}

// OllamaConfig contains the local Ollama backend configuration.
type OllamaConfig struct {
	// URL is the Ollama server URL.
	URL string `toml:"url"`
	// TimeoutSecs bounds a single completion request.
	TimeoutSecs int `toml:"timeout_secs"`
	// NumCtx is the context window passed to the model.
	NumCtx int `toml:"num_ctx"`
	// NumGPU is the number of layers offloaded to the GPU.
	NumGPU int `toml:"num_gpu"`
}

// ChatConfig contains turn controller tuning.
type ChatConfig struct {
	// TypingDelayMillis is the pause between streamed text tokens.
	TypingDelayMillis int `toml:"typing_delay_millis"`
	// NameFromFullHistory feeds the whole history to the name
	// summarizer instead of only the first user prompt.
	NameFromFullHistory bool `toml:"name_from_full_history"`
	// MaxDerivedNameRunes caps a derived conversation name.
	MaxDerivedNameRunes int `toml:"max_derived_name_runes"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8854,
			OpenBrowser:     true,
			RateLimitPerSec: 20,
			RateLimitBurst:  40,
			StaticDir:       "web",
		},

		Paths: PathsConfig{
			DataDir:      "", // resolved to ~/.obscyrus at load time
			ModelsDir:    "models",
			ConvosDir:    "conversations",
			CodesDir:     "codes",
			WorkspaceDir: "workspace",
		},

		Ollama: OllamaConfig{
			URL:         "http://127.0.0.1:11434",
			TimeoutSecs: 120,
			NumCtx:      18000,
			NumGPU:      20,
		},

		Chat: ChatConfig{
			TypingDelayMillis:   45,
			NameFromFullHistory: true,
			MaxDerivedNameRunes: 60,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// DataDir returns the obscyrus data directory path.
func DataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".obscyrus"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	if path := os.Getenv("OBSCYRUS_CONFIG"); path != "" {
		return path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file, falling back to
// defaults when the file is absent. Environment overrides are applied
// last, then the result is validated.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with
// full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.SetDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SetDefaults fills in any missing values and resolves relative store
// paths against the data directory.
func (c *Config) SetDefaults() error {
	defaults := Default()

	if c.Server.Host == "" {
		c.Server.Host = defaults.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaults.Server.Port
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = defaults.Server.RateLimitBurst
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = defaults.Server.StaticDir
	}

	if c.Paths.DataDir == "" {
		dir, err := DataDir()
		if err != nil {
			return err
		}
		c.Paths.DataDir = dir
	}
	if c.Paths.ModelsDir == "" {
		c.Paths.ModelsDir = defaults.Paths.ModelsDir
	}
	if c.Paths.ConvosDir == "" {
		c.Paths.ConvosDir = defaults.Paths.ConvosDir
	}
	if c.Paths.CodesDir == "" {
		c.Paths.CodesDir = defaults.Paths.CodesDir
	}
	if c.Paths.WorkspaceDir == "" {
		c.Paths.WorkspaceDir = defaults.Paths.WorkspaceDir
	}
	c.Paths.ModelsDir = c.resolvePath(c.Paths.ModelsDir)
	c.Paths.ConvosDir = c.resolvePath(c.Paths.ConvosDir)
	c.Paths.CodesDir = c.resolvePath(c.Paths.CodesDir)
	c.Paths.WorkspaceDir = c.resolvePath(c.Paths.WorkspaceDir)

	if c.Ollama.URL == "" {
		c.Ollama.URL = defaults.Ollama.URL
	}
	if c.Ollama.TimeoutSecs == 0 {
		c.Ollama.TimeoutSecs = defaults.Ollama.TimeoutSecs
	}
	if c.Ollama.NumCtx == 0 {
		c.Ollama.NumCtx = defaults.Ollama.NumCtx
	}
	if c.Ollama.NumGPU == 0 {
		c.Ollama.NumGPU = defaults.Ollama.NumGPU
	}

	if c.Chat.MaxDerivedNameRunes == 0 {
		c.Chat.MaxDerivedNameRunes = defaults.Chat.MaxDerivedNameRunes
	}

	return nil
}

// resolvePath resolves a store path against the data directory.
func (c *Config) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Paths.DataDir, path)
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be 1-65535, got %d", c.Server.Port),
		})
	}
	if c.Server.RateLimitPerSec < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.rate_limit_per_sec",
			Message: "must be non-negative",
		})
	}

	if c.Ollama.URL != "" {
		if u, err := url.Parse(c.Ollama.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "ollama.url",
				Message: fmt.Sprintf("invalid URL %q", c.Ollama.URL),
			})
		}
	}
	if c.Ollama.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.timeout_secs",
			Message: "must be non-negative",
		})
	}
	if c.Ollama.NumCtx < 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.num_ctx",
			Message: "must be non-negative",
		})
	}
	if c.Ollama.NumGPU < 0 {
		errs = append(errs, ValidationError{
			Field:   "ollama.num_gpu",
			Message: "must be non-negative",
		})
	}

	if c.Chat.TypingDelayMillis < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.typing_delay_millis",
			Message: "must be non-negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported environment variables:
//   - OBSCYRUS_HOST: overrides server.host
//   - OBSCYRUS_PORT: overrides server.port
//   - OBSCYRUS_NO_BROWSER: set to "1" or "true" to disable browser auto-open
//   - OBSCYRUS_DATA_DIR: overrides paths.data_dir
//   - OBSCYRUS_MODELS_DIR: overrides paths.models_dir
//   - OBSCYRUS_OLLAMA_URL: overrides ollama.url
func (c *Config) ApplyEnvOverrides() {
	if host := os.Getenv("OBSCYRUS_HOST"); host != "" {
		c.Server.Host = host
	}
	if port := os.Getenv("OBSCYRUS_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			c.Server.Port = n
		}
	}
	if noBrowser := os.Getenv("OBSCYRUS_NO_BROWSER"); noBrowser != "" {
		if noBrowser == "1" || strings.ToLower(noBrowser) == "true" {
			c.Server.OpenBrowser = false
		}
	}
	if dir := os.Getenv("OBSCYRUS_DATA_DIR"); dir != "" {
		c.Paths.DataDir = dir
	}
	if dir := os.Getenv("OBSCYRUS_MODELS_DIR"); dir != "" {
		c.Paths.ModelsDir = dir
	}
	if u := os.Getenv("OBSCYRUS_OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BaseURL returns the browser-facing URL of the UI.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s", c.Addr())
}

// OllamaTimeout returns the completion timeout as a duration.
func (c *Config) OllamaTimeout() time.Duration {
	return time.Duration(c.Ollama.TimeoutSecs) * time.Second
}

// TypingDelay returns the token pacing delay as a duration.
func (c *Config) TypingDelay() time.Duration {
	return time.Duration(c.Chat.TypingDelayMillis) * time.Millisecond
}
