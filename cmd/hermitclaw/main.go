// hermitclaw - a fully offline, secure-by-default coding agent.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jeranaias/hermitclaw/internal/cli"
	"github.com/jeranaias/hermitclaw/internal/config"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func main() {
	var (
		model     = flag.String("model", "", "model to use (overrides config)")
		mode      = flag.String("mode", "", "permission mode: default, accept_edits, yolo")
		noSandbox = flag.Bool("no-sandbox", false, "run tool commands without namespace isolation")
		resume    = flag.Bool("resume", false, "continue the most recent conversation in this directory")
		version   = flag.Bool("version", false, "print version and exit")
	)
	flag.StringVar(model, "m", "", "model to use (shorthand)")
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Printf("hermitclaw %s (%s)\n", Version, GitCommit)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hermitclaw: %v\n", err)
		os.Exit(1)
	}

	session, err := cli.NewSession(cfg, cli.ChatOptions{
		Model:     *model,
		NoSandbox: *noSandbox,
		Mode:      *mode,
		Resume:    *resume,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "hermitclaw: %v\n", err)
		os.Exit(1)
	}
	defer session.Close()

	if err := session.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "hermitclaw: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `hermitclaw - fully offline, secure-by-default coding agent

Usage:
  hermitclaw [flags]

Flags:
  -m, -model NAME   Use a specific model (overrides config)
  -mode NAME        Permission mode: default, accept_edits, yolo
  -no-sandbox       Run tool commands without namespace isolation
  -resume           Continue the most recent conversation here
  -version          Print version and exit

Configuration lives in ~/.hermitclaw/config.toml and is created with
defaults on first run. During chat, type /help for commands.
`)
}
