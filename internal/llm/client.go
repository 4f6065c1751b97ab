// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// SHARED HTTP PLUMBING
// =============================================================================

// requestTimeout bounds a single chat round trip. Local models can be slow
// on first load, so this is generous.
const requestTimeout = 300 * time.Second

// maxErrorBody caps how much of an error response body is read back into
// error messages.
const maxErrorBody = 4096

// newHTTPClient returns the http.Client shared by all provider clients.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// newLimiter returns the default per-client request limiter: a small burst,
// then at most two requests per second. Keeps tight agent loops from
// hammering a backend.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(500*time.Millisecond), 2)
}

// postJSON marshals body, POSTs it with the given headers, and classifies
// transport failures. The caller owns the returned response body.
func postJSON(ctx context.Context, client *http.Client, limiter *rate.Limiter, url string, headers map[string]string, body interface{}, connectHint string) (*http.Response, error) {
	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return nil, requestError("request cancelled while rate limited", err)
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, requestError("failed to encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, requestError("failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, connectHint)
	}
	return resp, nil
}

// classifyTransportError maps net/http failures onto the client error types.
func classifyTransportError(err error, connectHint string) *ClientError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request timed out", Cause: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) || strings.Contains(err.Error(), "connection refused") {
		return connectionError(connectHint, err)
	}
	return requestError("request failed", err)
}

// readErrorBody drains up to maxErrorBody bytes for inclusion in an error.
func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(data))
}

// drainAndClose fully consumes and closes a response body so the underlying
// connection can be reused.
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	_ = r.Close()
}
