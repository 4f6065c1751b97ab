// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations in SQLite. A conversation is
// scoped to the working directory it was created in, so resuming in
// one project never pulls in history from another. Messages are
// append-only and replayed in insertion order; compression never
// rewrites what was persisted.
package storage
