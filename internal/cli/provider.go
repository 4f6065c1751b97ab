// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// provider.go - Provider construction from configuration.

package cli

import (
	"fmt"

	"github.com/jeranaias/hermitclaw/internal/config"
	"github.com/jeranaias/hermitclaw/internal/llm"
)

// BuildProvider constructs the configured LLM client. The base URL
// falls back to the provider's standard endpoint when empty.
func BuildProvider(cfg config.LLMConfig) (llm.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL(cfg.Provider)
	}

	switch cfg.Provider {
	case "ollama":
		return llm.NewOllamaClient(baseURL, cfg.Model), nil
	case "openai":
		return llm.NewOpenAICompatClient(baseURL, cfg.Model, cfg.APIKey), nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic requires an API key (set ANTHROPIC_API_KEY)")
		}
		return llm.NewAnthropicClient(baseURL, cfg.Model, cfg.APIKey), nil
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini requires an API key (set GEMINI_API_KEY)")
		}
		return llm.NewGeminiClient(baseURL, cfg.Model, cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (valid: ollama, openai, anthropic, gemini)", cfg.Provider)
	}
}
