package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/lox/hourlyweather/internal/metrics"
)

// FetchResult describes one upstream call for the ingest audit trail.
type FetchResult struct {
	HTTPStatus   int
	ResponseSize int
	Hours        int
	QualityFlags []string
	Error        error
}

// StatusError is a non-200 upstream response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// ErrCircuitOpen is returned while a provider's breaker refuses calls.
var ErrCircuitOpen = errors.New("circuit breaker open")

type fetcher struct {
	provider string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	newRetry func() backoff.BackOff
}

func newFetcher(provider string, client *http.Client) *fetcher {
	return &fetcher{
		provider: provider,
		client:   client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        provider,
			MaxRequests: 3,
			Interval:    time.Minute,
			Timeout:     2 * time.Minute,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 5
			},
			// Client errors say nothing about provider health.
			IsSuccessful: func(err error) bool {
				var se *StatusError
				if errors.As(err, &se) {
					return !se.Retryable()
				}
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
		newRetry: func() backoff.BackOff {
			bo := backoff.NewExponentialBackOff()
			bo.InitialInterval = 500 * time.Millisecond
			bo.MaxElapsedTime = 30 * time.Second
			return bo
		},
	}
}

// get fetches url with retries, recording status and size on result.
func (f *fetcher) get(ctx context.Context, endpoint, url string, result *FetchResult) ([]byte, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderLatency.WithLabelValues(f.provider, endpoint).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	operation := func() error {
		out, err := f.breaker.Execute(func() (interface{}, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Accept", "application/json")
			resp, err := f.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			b, err := io.ReadAll(resp.Body)
			result.HTTPStatus = resp.StatusCode
			result.ResponseSize = len(b)
			if err != nil {
				return nil, fmt.Errorf("read body: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, &StatusError{Code: resp.StatusCode, Body: truncate(string(b), 200)}
			}
			return b, nil
		})
		if err == nil {
			body = out.([]byte)
			return nil
		}

		var se *StatusError
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			return backoff.Permanent(fmt.Errorf("%s: %w", f.provider, ErrCircuitOpen))
		case ctx.Err() != nil:
			return backoff.Permanent(ctx.Err())
		case errors.As(err, &se) && !se.Retryable():
			return backoff.Permanent(err)
		}
		return err
	}

	err := backoff.Retry(operation, backoff.WithContext(f.newRetry(), ctx))
	metrics.ProviderCallsTotal.WithLabelValues(f.provider, endpoint, statusLabel(result.HTTPStatus, err)).Inc()
	if err != nil {
		result.Error = fmt.Errorf("fetch %s: %w", endpoint, err)
		return nil, result.Error
	}
	return body, nil
}

func statusLabel(code int, err error) string {
	if code == 0 {
		if err != nil {
			return "error"
		}
		return "ok"
	}
	return strconv.Itoa(code)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
