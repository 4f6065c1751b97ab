// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tools holds the actions the model may invoke: file
// inspection and editing, recursive search, shell and git execution,
// URL fetching, and web search. Each tool declares a name, a
// description, a JSON parameter schema, and a static permission
// classification; the registry turns those into the definition list
// handed to the provider.
//
// Tools do not decide whether they may run. The permission gate makes
// that call before dispatch, using each tool's Permissions. Tools that
// touch the filesystem still validate every path through the security
// package so a sensitive path is refused even if a gate decision was
// somehow bypassed.
package tools
