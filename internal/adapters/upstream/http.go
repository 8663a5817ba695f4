package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/adapters/metrics"
	"gitlab.com/timkado/api/accessibility-finder-service/internal/domain"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/contextkeys"
)

// StatusError reports a non-2xx upstream response.
type StatusError struct {
	Provider   string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Provider, e.StatusCode)
}

// NewHTTPClient returns the client shared by the provider adapters.
// The client timeout is a backstop; each call also carries a context deadline.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout + time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        32,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// WithProvider tags ctx so log entries carry the provider name.
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, contextkeys.ProviderKey, provider)
}

// Do sends req with a deadline of timeout and returns the body of a 2xx response,
// read up to maxBody bytes. Every failure wraps domain.ErrUpstream.
func Do(ctx context.Context, client *http.Client, provider string, timeout time.Duration, maxBody int64, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := build(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: building %s request: %w", domain.ErrUpstream, provider, err)
	}

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(provider, metrics.OutcomeError, started)
		return nil, classify(provider, timeout, callCtx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveUpstream(provider, metrics.OutcomeError, started)
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, &StatusError{Provider: provider, StatusCode: resp.StatusCode})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody+1))
	if err != nil {
		metrics.ObserveUpstream(provider, metrics.OutcomeError, started)
		return nil, classify(provider, timeout, callCtx, err)
	}
	if int64(len(body)) > maxBody {
		metrics.ObserveUpstream(provider, metrics.OutcomeError, started)
		return nil, fmt.Errorf("%w: %s response exceeds %d bytes", domain.ErrUpstream, provider, maxBody)
	}

	metrics.ObserveUpstream(provider, metrics.OutcomeSuccess, started)
	return body, nil
}

func classify(provider string, timeout time.Duration, callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s request timed out after %s: %w", domain.ErrUpstream, provider, timeout, context.DeadlineExceeded)
	}
	if errors.Is(callCtx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %s request cancelled: %w", domain.ErrUpstream, provider, context.Canceled)
	}
	return fmt.Errorf("%w: %s request failed: %w", domain.ErrUpstream, provider, err)
}
