package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	maxAttempts = 3
	baseBackoff = 500 * time.Millisecond
	maxBackoff  = 4 * time.Second
	jitterRatio = 0.3

	// DefaultTimeout bounds one attempt against a standard endpoint.
	// Heavier endpoints (text generation) pass a larger value per call.
	DefaultTimeout = 10 * time.Second

	bodyPreviewLimit = 200
)

// Client performs JSON-over-HTTP calls against external providers with
// bounded retries, exponential backoff and jitter. It is reentrant: each call
// owns its retry loop, and the only shared state is the connection pool.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger

	// injectable for tests
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// CallOptions carries per-call settings.
type CallOptions struct {
	Headers map[string]string
	Timeout time.Duration
}

func New(logger *zap.Logger) *Client {
	return &Client{
		// No client-wide timeout: each attempt carries its own context
		// deadline, so a retry loop never inherits a stale budget.
		httpClient: &http.Client{},
		logger:     logger,
		sleep:      sleepContext,
		randFloat:  rand.Float64,
	}
}

// PostJSON sends payload to endpoint and decodes the JSON response into out.
// Transient failures (HTTP 429, 5xx, timeouts) are retried up to maxAttempts
// with exponential backoff plus jitter; any other HTTP error is terminal.
// The returned error is always either a *Failure or a context error.
func (c *Client) PostJSON(ctx context.Context, endpoint string, payload interface{}, out interface{}, opts CallOptions) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Failure{Kind: FailureInvalidRequest, Err: err}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var lastFailure *Failure
	for attempt := 0; attempt < maxAttempts; attempt++ {
		failure := c.doAttempt(ctx, endpoint, body, out, opts.Headers, timeout)
		if failure == nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		lastFailure = failure

		if !failure.Retriable() {
			c.logger.Error("provider call terminal failure",
				zap.String("endpoint", endpoint),
				zap.String("kind", string(failure.Kind)),
				zap.Int("status", failure.Status),
				zap.String("body", failure.BodyPreview),
			)
			return failure
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := c.backoffDelay(attempt)
		c.logger.Warn("provider call failed, retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.String("kind", string(failure.Kind)),
			zap.Int("status", failure.Status),
			zap.Duration("wait", wait),
		)
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}

	c.logger.Error("provider call failed after all attempts",
		zap.String("endpoint", endpoint),
		zap.Int("attempts", maxAttempts),
		zap.String("kind", string(lastFailure.Kind)),
		zap.Int("status", lastFailure.Status),
		zap.String("body", lastFailure.BodyPreview),
	)
	return lastFailure
}

// doAttempt performs a single HTTP round trip. A nil return means the
// response was decoded into out successfully.
func (c *Client) doAttempt(ctx context.Context, endpoint string, body []byte, out interface{}, headers map[string]string, timeout time.Duration) *Failure {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &Failure{Kind: FailureInvalidRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return classifyTransportError(err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return &Failure{Kind: FailureUnknown, Status: resp.StatusCode, BodyPreview: preview(respBody), Err: err}
		}
	}
	return nil
}

func classifyStatus(status int, body []byte) *Failure {
	f := &Failure{Status: status, BodyPreview: preview(body)}
	switch {
	case status == http.StatusTooManyRequests:
		f.Kind = FailureRateLimited
	case status >= 500 && status < 600:
		f.Kind = FailureServerError
	default:
		// 4xx other than 429: the request itself is wrong, retrying
		// would only burn quota.
		f.Kind = FailureInvalidRequest
	}
	return f
}

func classifyTransportError(err error) *Failure {
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureTimeout, Err: err}
	}
	return &Failure{Kind: FailureNetwork, Err: err}
}

// backoffDelay computes min(base * 2^attempt, cap) plus a uniform jitter of
// up to 30% of that value.
func (c *Client) backoffDelay(attempt int) time.Duration {
	backoff := baseBackoff << uint(attempt)
	if backoff > maxBackoff {
		backoff = maxBackoff
	}
	jitter := time.Duration(c.randFloat() * jitterRatio * float64(backoff))
	return backoff + jitter
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func preview(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > bodyPreviewLimit {
		return string(body[:bodyPreviewLimit])
	}
	return string(body)
}
