// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sandbox

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// runWithDeadline starts cmd and enforces the deadline. The caller is
// responsible for setting Setpgid so the whole process group can be
// killed on timeout or cancellation. On timeout the partial output
// captured so far is returned alongside the timeout error.
func runWithDeadline(ctx context.Context, cmd *exec.Cmd, timeout time.Duration) (*Result, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, executionError("starting command", err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case waitErr := <-done:
		return resultFrom(&stdout, &stderr, waitErr)
	case <-timer.C:
		killGroup(cmd)
		<-done
		res := &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1}
		return res, timeoutError(timeout)
	case <-ctx.Done():
		killGroup(cmd)
		<-done
		return nil, executionError("command canceled", ctx.Err())
	}
}

func resultFrom(stdout, stderr *bytes.Buffer, waitErr error) (*Result, error) {
	res := &Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if waitErr == nil {
		return res, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		// Non-zero exit is not a sandbox failure. The caller decides
		// what a failing command means.
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return nil, executionError("waiting for command", waitErr)
}
