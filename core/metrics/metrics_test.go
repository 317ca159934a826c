package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestHandlerServesMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.Updates.WithLabelValues("start", "ok").Inc()
	m.NavSteps.WithLabelValues("achi", "select").Add(2)

	srv := httptest.NewServer(Handler(m, "/metrics", nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `achibot_updates_total{handler="start",status="ok"} 1`)
	assert.Contains(t, string(body), `achibot_navigation_steps_total{classifier="achi",outcome="select"} 2`)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NavSteps.WithLabelValues("achi", "select")))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		health HealthFunc
		code   int
	}{
		{name: "no probe", code: http.StatusOK},
		{name: "healthy", health: func(context.Context) error { return nil }, code: http.StatusOK},
		{name: "unhealthy", health: func(context.Context) error { return errors.New("db down") }, code: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			Handler(New(), "", tt.health).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, Handler(New(), "/metrics", nil)) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	http.DefaultClient.CloseIdleConnections()

	cancel()
	require.NoError(t, <-done)
}
