// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build windows

package sandbox

import "os/exec"

func newShellCmd(command, dir string) *exec.Cmd {
	cmd := exec.Command("cmd", "/C", command)
	cmd.Dir = dir
	return cmd
}

func killGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}
