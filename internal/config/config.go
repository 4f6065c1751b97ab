// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete hermitclaw configuration.
type Config struct {
	LLM    LLMConfig    `toml:"llm"`
	Agent  AgentConfig  `toml:"agent"`
	Memory MemoryConfig `toml:"memory"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	// Provider is the backend to talk to: "ollama", "openai",
	// "anthropic", or "gemini".
	Provider string `toml:"provider"`
	// Model is the model identifier passed to the provider.
	Model string `toml:"model"`
	// BaseURL is the provider endpoint. Empty means the provider's
	// standard endpoint (for Ollama, http://localhost:11434).
	BaseURL string `toml:"base_url"`
	// APIKey authenticates with cloud providers. Ollama ignores it.
	// Prefer the environment variables (OPENAI_API_KEY, etc.) over
	// writing keys to disk.
	APIKey string `toml:"api_key"`
}

// AgentConfig tunes the orchestration loop.
type AgentConfig struct {
	// MaxIterations bounds provider round-trips per user turn.
	MaxIterations int `toml:"max_iterations"`
	// Sandbox enables namespace isolation for shell and git commands.
	Sandbox bool `toml:"sandbox"`
	// PermissionMode is the starting approval mode: "default",
	// "accept_edits", or "yolo".
	PermissionMode string `toml:"permission_mode"`
	// ContextCompression enables automatic history summarization.
	ContextCompression bool `toml:"context_compression"`
	// ContextThreshold is the message count that triggers compression.
	ContextThreshold int `toml:"context_threshold"`
	// KeepRecent is how many recent messages survive compression verbatim.
	KeepRecent int `toml:"keep_recent"`
}

// MemoryConfig configures conversation persistence.
type MemoryConfig struct {
	// DatabasePath is the SQLite file holding conversation history.
	// A leading ~ expands to the home directory.
	DatabasePath string `toml:"database_path"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in configuration: local Ollama, sandbox
// on, ten iterations per turn.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "qwen2.5:7b",
			BaseURL:  "http://localhost:11434",
		},
		Agent: AgentConfig{
			MaxIterations:      10,
			Sandbox:            true,
			PermissionMode:     "default",
			ContextCompression: true,
			ContextThreshold:   40,
			KeepRecent:         10,
		},
		Memory: MemoryConfig{
			DatabasePath: "~/.hermitclaw/memory.db",
		},
	}
}

// DefaultBaseURL returns the standard endpoint for a provider, used
// when base_url is left empty for a non-default provider.
func DefaultBaseURL(provider string) string {
	switch provider {
	case "openai":
		return "https://api.openai.com"
	case "anthropic":
		return "https://api.anthropic.com"
	case "gemini":
		return "https://generativelanguage.googleapis.com"
	default:
		return "http://localhost:11434"
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the hermitclaw configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".hermitclaw"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions tightens config file permissions to 0600 so
// API keys stay owner-readable only.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Mode().Perm() != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", info.Mode().Perm(), err)
		}
	}
	return nil
}

// =============================================================================
// LOAD AND SAVE
// =============================================================================

// Load reads ~/.hermitclaw/config.toml, creating it with defaults on
// first run. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		if err := Save(cfg); err != nil {
			// A read-only home is not fatal; run with defaults.
			return cfg, nil
		}
		return cfg, nil
	}

	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with
// full validation.
func LoadFromPath(path string) (*Config, error) {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	fillDefaults(cfg)
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = defaults.LLM.Provider
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = defaults.LLM.Model
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL(cfg.LLM.Provider)
	}

	if cfg.Agent.MaxIterations == 0 {
		cfg.Agent.MaxIterations = defaults.Agent.MaxIterations
	}
	if cfg.Agent.PermissionMode == "" {
		cfg.Agent.PermissionMode = defaults.Agent.PermissionMode
	}
	if cfg.Agent.ContextThreshold == 0 {
		cfg.Agent.ContextThreshold = defaults.Agent.ContextThreshold
	}
	if cfg.Agent.KeepRecent == 0 {
		cfg.Agent.KeepRecent = defaults.Agent.KeepRecent
	}

	if cfg.Memory.DatabasePath == "" {
		cfg.Memory.DatabasePath = defaults.Memory.DatabasePath
	}
}

// Save writes the configuration to the default TOML file with 0600
// permissions.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file, owner read/write
// only.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# hermitclaw configuration file")
	fmt.Fprintln(file, "# Generated by hermitclaw - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides. API keys
// in particular are expected to come from the environment rather than
// the config file.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("HERMITCLAW_PROVIDER"); v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("HERMITCLAW_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("HERMITCLAW_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" && c.LLM.Provider == "ollama" {
		c.LLM.BaseURL = v
	}

	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors aggregates all validation failures.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

var validProviders = map[string]bool{
	"ollama":    true,
	"openai":    true,
	"anthropic": true,
	"gemini":    true,
}

var validModes = map[string]bool{
	"default":      true,
	"accept_edits": true,
	"yolo":         true,
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if !validProviders[c.LLM.Provider] {
		errs = append(errs, ValidationError{
			Field:   "llm.provider",
			Message: fmt.Sprintf("unknown provider %q (valid: ollama, openai, anthropic, gemini)", c.LLM.Provider),
		})
	}
	if c.LLM.Model == "" {
		errs = append(errs, ValidationError{Field: "llm.model", Message: "model must not be empty"})
	}
	if u, err := url.Parse(c.LLM.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "llm.base_url",
			Message: fmt.Sprintf("invalid URL %q", c.LLM.BaseURL),
		})
	}
	if c.LLM.Provider == "anthropic" || c.LLM.Provider == "gemini" {
		if c.LLM.APIKey == "" {
			errs = append(errs, ValidationError{
				Field:   "llm.api_key",
				Message: fmt.Sprintf("provider %q requires an API key (set %s)", c.LLM.Provider, keyEnvVar(c.LLM.Provider)),
			})
		}
	}

	if c.Agent.MaxIterations < 1 {
		errs = append(errs, ValidationError{Field: "agent.max_iterations", Message: "must be at least 1"})
	}
	if !validModes[c.Agent.PermissionMode] {
		errs = append(errs, ValidationError{
			Field:   "agent.permission_mode",
			Message: fmt.Sprintf("unknown mode %q (valid: default, accept_edits, yolo)", c.Agent.PermissionMode),
		})
	}
	if c.Agent.ContextThreshold < 0 || c.Agent.KeepRecent < 0 {
		errs = append(errs, ValidationError{Field: "agent", Message: "context_threshold and keep_recent must not be negative"})
	}

	if c.Memory.DatabasePath == "" {
		errs = append(errs, ValidationError{Field: "memory.database_path", Message: "must not be empty"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func keyEnvVar(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}
