// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package security decides what the agent may touch before anything runs:
// filesystem paths are canonicalized and checked against a permitted root
// and a fixed sensitive deny-list, and shell/git commands are classified
// into allow / approval / blocked tiers.
//
// Both checks are pure decisions. Enforcement belongs to the permission
// gate and the tools that call in here.
package security
