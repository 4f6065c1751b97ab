// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build unix

package sandbox

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// newShellCmd builds the shell invocation with its own process group
// so that killGroup reaches the command's descendants too.
func newShellCmd(command, dir string) *exec.Cmd {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	return cmd
}

// killGroup sends SIGKILL to the command's process group. Falls back
// to killing the direct child if the group is already gone.
func killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pgid, err := unix.Getpgid(cmd.Process.Pid)
	if err == nil && pgid > 0 {
		if unix.Kill(-pgid, unix.SIGKILL) == nil {
			return
		}
	}
	_ = cmd.Process.Kill()
}
