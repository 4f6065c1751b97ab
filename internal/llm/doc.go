// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm defines the provider-neutral conversation types and the
// Provider interface the agent loop talks to, plus HTTP clients for the
// four supported backends:
//
//   - Ollama (local, no auth)
//   - OpenAI-compatible servers (llama.cpp, vLLM, OpenAI itself)
//   - Anthropic Messages API
//   - Google Gemini generateContent API
//
// All clients are synchronous: one Chat call, one response. Streaming,
// retries, and transport details stay inside each client; the agent only
// depends on the Provider shape.
package llm
