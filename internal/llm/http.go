package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/internal/common"
)

// maxResponseBytes caps what is read from a model endpoint. Mapping answers are a few KB.
const maxResponseBytes = 4 << 20

// Request is one JSON POST to a model endpoint. The caller picks URL and headers.
type Request struct {
	URL     string
	Body    any
	Headers map[string]string
	Retries int // extra attempts after a throttled or gateway answer
}

// StatusError is a non-2xx answer from the endpoint.
type StatusError struct {
	Status     int
	Body       []byte
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status: %d", e.Status)
}

// Temporary reports whether the endpoint asked to be tried again later.
func (e *StatusError) Temporary() bool {
	switch e.Status {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// PostJSON sends req.Body and returns the raw response body. Temporary
// failures are retried up to req.Retries times, but only while the wait still
// fits inside the context deadline.
func PostJSON(ctx context.Context, client *http.Client, req Request, logger *slog.Logger) ([]byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	reqID := common.RequestIDFromContext(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}

	bs, err := json.Marshal(req.Body)
	if err != nil {
		logger.Error("llm.http.encode_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("encode json: %w", err)
	}

	for attempt := 0; ; attempt++ {
		raw, err := postOnce(ctx, client, req, bs, reqID, logger)
		var se *StatusError
		if err == nil || !errors.As(err, &se) || !se.Temporary() || attempt >= req.Retries {
			return raw, err
		}

		wait := se.RetryAfter
		if wait <= 0 {
			wait = 250 * time.Millisecond << attempt
		}
		if dl, ok := ctx.Deadline(); ok && time.Until(dl) < wait {
			logger.Warn("llm.http.retry_skipped", "req_id", reqID, "status", se.Status, "wait_ms", wait.Milliseconds())
			return raw, err
		}
		logger.Warn("llm.http.retry", "req_id", reqID, "status", se.Status, "attempt", attempt+1, "wait_ms", wait.Milliseconds())

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return raw, ctx.Err()
		case <-t.C:
		}
	}
}

func postOnce(ctx context.Context, client *http.Client, req Request, bs []byte, reqID string, logger *slog.Logger) ([]byte, error) {
	start := time.Now()
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, req.URL, bytes.NewReader(bs))
	if err != nil {
		logger.Error("llm.http.build_request_error", "req_id", reqID, "error", err)
		return nil, fmt.Errorf("build request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("X-Request-Id", reqID)
	for k, v := range req.Headers {
		hr.Header.Set(k, v)
	}

	logger.Debug("llm.http.request", "req_id", reqID, "url", req.URL, "content_length", len(bs))

	resp, err := client.Do(hr)
	if err != nil {
		logger.Error("llm.http.send_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("llm.http.response_body_close_error", "req_id", reqID, "error", err)
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Error("llm.http.read_error", "req_id", reqID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("read body: %w", err)
	}

	logger.Info("llm.http.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, &StatusError{
			Status:     resp.StatusCode,
			Body:       raw,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return raw, nil
}

// retryAfter reads delay-seconds or an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
