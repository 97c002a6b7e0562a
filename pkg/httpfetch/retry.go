package httpfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/kadirpekel/ikoma/pkg/logger"
)

// RetryStrategy mirrors hector's httpclient: SmartRetry honors a
// Retry-After header (adapted here for plain 429/503 responses instead of
// provider-specific rate-limit headers), ConservativeRetry uses a short
// linearly growing backoff (2s, 3s, 4s, ...), NoRetry gives up immediately.
type RetryStrategy int

const (
	NoRetry RetryStrategy = iota
	ConservativeRetry
	SmartRetry
)

func defaultStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return SmartRetry
	case http.StatusRequestTimeout, http.StatusInternalServerError, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// retryAfter parses a standard Retry-After header, returning (0, false) if
// absent or unparseable as either seconds or an HTTP-date.
func retryAfter(h http.Header) (time.Duration, bool) {
	v := h.Get("Retry-After")
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	if when, err := http.ParseTime(v); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// retryingDo executes req with up to maxRetries retries, following the
// same delay-calculation shape as hector's httpclient.Client.Do: smart
// retries prefer Retry-After, conservative retries wait 2+attempt
// seconds, and both cap out at maxDelay with jitter on the exponential
// fallback.
func retryingDo(ctx context.Context, client *http.Client, req *http.Request, maxRetries int, baseDelay, maxDelay time.Duration) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpfetch: read request body: %w", err)
		}
		bodyBytes = b
		req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 && bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			time.Sleep(backoffDelay(attempt, baseDelay, maxDelay))
			continue
		}

		strategy := defaultStrategy(resp.StatusCode)
		if strategy == NoRetry || attempt == maxRetries {
			return resp, nil
		}

		delay := baseDelay
		if strategy == SmartRetry {
			if d, ok := retryAfter(resp.Header); ok {
				delay = d
			} else {
				delay = backoffDelay(attempt, baseDelay, maxDelay)
			}
		} else {
			delay = time.Duration(2+attempt) * time.Second
		}
		if delay > maxDelay {
			delay = maxDelay
		}

		logger.GetLogger().Warn("httpfetch: retrying request",
			"url", req.URL.String(), "status", resp.StatusCode, "attempt", attempt+1, "delay", delay)
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("httpfetch: exhausted retries: %w", lastErr)
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base * (1 << attempt)
	if d > max || d <= 0 {
		d = max
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 10+1))
	return d + jitter
}
