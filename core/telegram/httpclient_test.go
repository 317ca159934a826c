package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}
}

func TestRetryTransport(t *testing.T) {
	t.Parallel()

	dialErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	calls := 0
	rt := &retryTransport{
		base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				if r.Body != nil {
					b, _ := io.ReadAll(r.Body)
					assert.Equal(t, "chat_id=1", string(b), "body is replayed on retry")
				}
				return nil, dialErr
			}
			return okResponse(), nil
		}),
		maxRetries: 3,
	}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/sendMessage", strings.NewReader("chat_id=1"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, 3, calls)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	permanent := errors.New("tls: bad certificate")
	rt := &retryTransport{
		base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls++
			return nil, permanent
		}),
		maxRetries: 3,
	}
	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)
	_, err = rt.RoundTrip(req)
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetryDelayCapped(t *testing.T) {
	t.Parallel()

	rt := &retryTransport{backoff: apiBackoff}
	assert.Equal(t, apiBackoff, rt.delay(1))
	assert.Equal(t, 2*apiBackoff, rt.delay(2))
	assert.Equal(t, apiBackoffCap, rt.delay(5))
}
