// -----------------------------------------------------------------------
// HTTP Server - Tests
// -----------------------------------------------------------------------
//
// Covers the builder defaults, routing, bind failures and the lifecycle
// state machine. Routing tests drive the handler through httptest.Server;
// only the lifecycle test runs Run against a real socket.
//
// -----------------------------------------------------------------------

package httpd

import (
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/afreidah/jail-exporter/internal/collector"
	"github.com/afreidah/jail-exporter/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type toggleCollector struct {
	failing atomic.Bool
}

func (c *toggleCollector) Render() ([]byte, error) {
	if c.failing.Load() {
		return nil, &collector.CollectionError{Err: errors.New("rctl unavailable")}
	}
	return []byte("# TYPE jail_num gauge\njail_num 2\n"), nil
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()

	h, err := s.Handler()
	require.NoError(t, err)

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

// -----------------------------------------------------------------------
// Builder Tests
// -----------------------------------------------------------------------

func TestNewDefaults(t *testing.T) {
	s := New()

	assert.Equal(t, "127.0.0.1:9452", s.ListenAddress())
	assert.Equal(t, "/metrics", s.Path())
	assert.Equal(t, Unbound, s.State())
}

func TestSettersLastCallWins(t *testing.T) {
	s := New().
		BindAddress("127.0.0.2:9000").
		TelemetryPath("/first").
		BindAddress("[::1]:9001").
		TelemetryPath("/second")

	assert.Equal(t, "[::1]:9001", s.ListenAddress())
	assert.Equal(t, "/second", s.Path())
}

// -----------------------------------------------------------------------
// Routing Tests
// -----------------------------------------------------------------------

func TestIndexRoute(t *testing.T) {
	ts := newTestServer(t, New().TelemetryPath("/jails").Collector(&toggleCollector{}))

	resp, body := get(t, ts.URL+"/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `href="/jails"`)
}

func TestMetricsRoute(t *testing.T) {
	ts := newTestServer(t, New().TelemetryPath("/jails").Collector(&toggleCollector{}))

	resp, body := get(t, ts.URL+"/jails")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, collector.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, body, "jail_num 2")
}

func TestUnknownPathIs404(t *testing.T) {
	ts := newTestServer(t, New().Collector(&toggleCollector{}))

	for _, path := range []string{"/nope", "/metrics/extra", "/metric"} {
		resp, _ := get(t, ts.URL+path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
}

func TestPostIsRejected(t *testing.T) {
	ts := newTestServer(t, New().Collector(&toggleCollector{}))

	resp, err := http.Post(ts.URL+"/metrics", "text/plain", strings.NewReader("x"))
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, http.MethodGet, resp.Header.Get("Allow"))
}

// TestCollectorFailureDoesNotStopServer: a failing collection yields 500,
// and the next request after the collector recovers yields 200 from the
// same server.
func TestCollectorFailureDoesNotStopServer(t *testing.T) {
	c := &toggleCollector{}
	c.failing.Store(true)
	ts := newTestServer(t, New().Collector(c))

	resp, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c.failing.Store(false)
	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "jail_num 2")
}

func TestRateLimitedTelemetryRoute(t *testing.T) {
	limiter := ratelimit.New(0.001, 1)
	t.Cleanup(limiter.Stop)

	ts := newTestServer(t, New().Collector(&toggleCollector{}).RateLimiter(limiter))

	resp, _ := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// The index is never limited.
	resp, _ = get(t, ts.URL+"/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestTelemetryPathIsLiteral verifies router pattern syntax in the
// telemetry path matches only itself.
func TestTelemetryPathIsLiteral(t *testing.T) {
	tests := []struct {
		telemetryPath string
		served        string
		notFound      []string
	}{
		{"/metrics*", "/metrics*", []string{"/metricsANYTHING/else", "/metrics", "/metricsx"}},
		{"/jails/{id}", "/jails/{id}", []string{"/jails/whatever", "/jails/"}},
		{"/{broken", "/{broken", []string{"/broken", "/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.telemetryPath, func(t *testing.T) {
			ts := newTestServer(t, New().TelemetryPath(tt.telemetryPath).Collector(&toggleCollector{}))

			resp, body := get(t, ts.URL+tt.served)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, "jail_num 2")

			for _, path := range tt.notFound {
				resp, _ := get(t, ts.URL+path)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
			}
		})
	}
}

func TestRouteLabel(t *testing.T) {
	label := routeLabel("/jails")

	for path, want := range map[string]string{
		"/":        "index",
		"/jails":   "metrics",
		"/jails/x": "other",
		"/metrics": "other",
	} {
		assert.Equal(t, want, label(httptest.NewRequest(http.MethodGet, path, nil)), path)
	}
}

// -----------------------------------------------------------------------
// Run Tests
// -----------------------------------------------------------------------

// TestRunBindError occupies a port and verifies Run fails fast with a
// *BindError naming the address, without leaving goroutines behind.
func TestRunBindError(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	addr := ln.Addr().String()
	ready := false
	s := New().
		BindAddress(addr).
		Collector(&toggleCollector{}).
		OnReady(func(net.Addr) { ready = true })

	err = s.Run()

	var berr *BindError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, addr, berr.Address)
	assert.Contains(t, err.Error(), addr)
	assert.NotNil(t, errors.Unwrap(err))
	assert.False(t, ready, "OnReady must not fire when binding fails")
	assert.Equal(t, Failed, s.State())
}

// TestRunServes starts a real server on an ephemeral port. Run has no
// shutdown path, so the serving goroutine lives until the test binary
// exits; this is the accepted process-level termination model.
func TestRunServes(t *testing.T) {
	readyCh := make(chan net.Addr, 1)
	s := New().
		BindAddress("127.0.0.1:0").
		Collector(&toggleCollector{}).
		OnReady(func(a net.Addr) { readyCh <- a })

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run() }()

	var addr net.Addr
	select {
	case addr = <-readyCh:
	case err := <-errCh:
		require.FailNowf(t, "Run returned early", "%v", err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "server did not become ready")
	}

	resp, body := get(t, "http://"+addr.String()+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "jail_num 2")
	assert.Equal(t, Serving, s.State())
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		Unbound:    "unbound",
		Bound:      "bound",
		Serving:    "serving",
		Terminated: "terminated",
		Failed:     "failed",
		State(42):  "unknown",
	} {
		assert.Equal(t, want, state.String())
	}
}
