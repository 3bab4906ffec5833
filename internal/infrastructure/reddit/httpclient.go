package reddit

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/jonboulle/clockwork"
)

// leveledSlog adapts slog to retryablehttp; intermediate errors are retried
// so they are logged as warnings.
type leveledSlog struct {
	inner *slog.Logger
}

func (l leveledSlog) Error(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Warn(msg string, keysAndValues ...any) {
	l.inner.Warn(msg, keysAndValues...)
}

func (l leveledSlog) Info(msg string, keysAndValues ...any) {
	l.inner.Info(msg, keysAndValues...)
}

func (l leveledSlog) Debug(msg string, keysAndValues ...any) {
	l.inner.Debug(msg, keysAndValues...)
}

type clientSettings struct {
	retry *retryablehttp.Client
	clock clockwork.Clock
}

// Option tweaks the retrying transport or the clock of a Client.
type Option func(*clientSettings)

// WithRetryWait bounds the backoff between attempts.
func WithRetryWait(minWait, maxWait time.Duration) Option {
	return func(s *clientSettings) {
		s.retry.RetryWaitMin = minWait
		s.retry.RetryWaitMax = maxWait
	}
}

// WithTransport replaces the pooled transport, mostly for tests.
func WithTransport(transport http.RoundTripper) Option {
	return func(s *clientSettings) {
		s.retry.HTTPClient.Transport = transport
	}
}

// WithClock sets the clock used for token expiry.
func WithClock(clock clockwork.Clock) Option {
	return func(s *clientSettings) {
		s.clock = clock
	}
}

func newSettings(maxRetries int, logger *slog.Logger, options ...Option) *clientSettings {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = maxRetries
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(leveledSlog{inner: logger.With("subsystem", "reddit-http")})
	retryClient.CheckRetry = retryPolicy

	s := &clientSettings{retry: retryClient, clock: clockwork.NewRealClock()}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *clientSettings) httpClient() *http.Client {
	client := s.retry.StandardClient()
	client.Timeout = 30 * time.Second
	return client
}

// retryPolicy retries connection errors, 429 and 5xx responses. A 401 goes
// straight back to the client, which re-authenticates once.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusUnauthorized {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
