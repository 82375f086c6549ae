package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	pkgerrors "github.com/jdupreez/veemark-gateway/pkg/errors"
	"github.com/jdupreez/veemark-gateway/pkg/types"
)

type request struct {
	endpoint string
	method   string
	path     string
	body     any
	headers  map[string]string
}

// result decodes a successful response body.
type result func(body []byte) error

func objectResult(dest any) result {
	return func(body []byte) error {
		return decodeObject(body, dest)
	}
}

func listResult(dest any) result {
	return func(body []byte) error {
		return decodeList(body, dest)
	}
}

func discardResult() result {
	return func([]byte) error { return nil }
}

// do performs the request with the configured timeout and capped retry.
// Only transient failures retry: timeouts, connection errors, 429/502/503.
// Validation rejections and conflicts surface immediately.
func (c *Client) do(ctx context.Context, req request, decode result) error {
	var payload []byte
	if req.body != nil {
		encoded, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode upstream request")
		}
		payload = encoded
	}

	started := time.Now()
	defer func() {
		c.metrics.ObserveDuration(req.endpoint, time.Since(started))
	}()

	var lastErr error
	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 1 {
			c.metrics.IncRetry(req.endpoint)
			if err := sleepBackoff(ctx, c.cfg.RetryBackoff, attempt-1); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "upstream retry canceled")
			}
		}

		retryable, err := c.attempt(ctx, req, payload, decode)
		if err == nil {
			c.metrics.IncAttempt(req.endpoint, "success")
			return nil
		}
		if !retryable {
			c.metrics.IncAttempt(req.endpoint, "failed")
			return err
		}
		c.metrics.IncAttempt(req.endpoint, "retryable")
		lastErr = err
	}

	return pkgerrors.Wrap(pkgerrors.CodeUpstream, lastErr, fmt.Sprintf("marketplace unreachable after %d attempts", c.cfg.RetryAttempts))
}

// attempt runs one HTTP round trip. The bool reports whether the failure is
// worth retrying.
func (c *Client) attempt(ctx context.Context, req request, payload []byte, decode result) (bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	target := c.baseURL.JoinPath(req.path).String()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.method, target, body)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upstream request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		// Timeouts and connection failures are transient; a canceled parent
		// context is not.
		if ctx.Err() != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "upstream request canceled")
		}
		return true, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "upstream request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "read upstream response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := decode(raw); err != nil {
			return false, pkgerrors.Wrap(pkgerrors.CodeUpstream, err, "decode upstream response")
		}
		return false, nil
	case isRetryableStatus(resp.StatusCode):
		return true, pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("upstream returned %d", resp.StatusCode))
	default:
		return false, mapTerminalStatus(resp.StatusCode, raw)
	}
}

func isRetryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// mapTerminalStatus turns a non-retryable upstream rejection into a coded
// error. Conflicts mean the server state already advanced: the caller must
// re-fetch before resubmitting, never retry with stale data.
func mapTerminalStatus(status int, raw []byte) error {
	message := upstreamMessage(raw)
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if message == "" {
			message = "marketplace rejected the request"
		}
		return pkgerrors.New(pkgerrors.CodeValidation, message)
	case http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, "marketplace resource not found")
	case http.StatusConflict:
		if message == "" {
			message = "outdated, please refresh"
		}
		return pkgerrors.New(pkgerrors.CodeConflict, message)
	default:
		return pkgerrors.New(pkgerrors.CodeUpstream, fmt.Sprintf("upstream returned %d", status))
	}
}

func upstreamMessage(raw []byte) string {
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return ""
	}
	return envelope.Error.Message
}

// sleepBackoff waits base << (attempt-1), honoring cancellation.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
