// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and persists hermitclaw configuration.
//
// Configuration lives in ~/.hermitclaw/config.toml. On first run the
// file is created with built-in defaults (local Ollama, sandbox on).
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (HERMITCLAW_*, provider *_API_KEY)
//   - ~/.hermitclaw/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Access settings:
//
//	model := cfg.LLM.Model
//	iterations := cfg.Agent.MaxIterations
package config
