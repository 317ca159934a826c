package telegram

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/achibot/core/logger"
	"github.com/m3rciful/achibot/core/telegram/netutil"
)

const (
	apiClientTimeout = 30 * time.Second
	apiDialTimeout   = 5 * time.Second
	apiRetries       = 3
	apiBackoff       = 2 * time.Second
	apiBackoffCap    = 8 * time.Second
)

// BuildHTTPClient returns the client used for Bot API calls. Transport
// failures that never reached Telegram are retried with backoff.
func BuildHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: apiDialTimeout, KeepAlive: 30 * time.Second}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       time.Minute,
		TLSHandshakeTimeout:   apiDialTimeout,
		ResponseHeaderTimeout: apiDialTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{
		Timeout:   apiClientTimeout,
		Transport: &retryTransport{base: base, maxRetries: apiRetries, backoff: apiBackoff},
	}
}

var errNoReplay = errors.New("telegram: request body cannot be replayed")

type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.maxRetries && netutil.ShouldRetry(err); attempt++ {
		again, rerr := rewind(req)
		if rerr != nil {
			return nil, err
		}

		delay := t.delay(attempt)
		logger.Debug(ctx, logger.CompTG, "http.retry",
			slog.String("status", "retry"),
			slog.String("method", req.Method),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("err_kind", netutil.Kind(err)),
			slog.String("err", netutil.Redact(err)),
		)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		resp, err = base.RoundTrip(again)
	}
	return resp, err
}

// delay doubles the base backoff per attempt up to apiBackoffCap.
func (t *retryTransport) delay(attempt int) time.Duration {
	d := t.backoff << (attempt - 1)
	if d > apiBackoffCap || d < 0 {
		return apiBackoffCap
	}
	return d
}

// rewind clones req with a fresh body. Requests whose body cannot be
// replayed are not retried.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errNoReplay
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}
