// -----------------------------------------------------------------------
// HTTP Server
// -----------------------------------------------------------------------
//
// Package httpd builds and runs the exporter's HTTP endpoint. A Server is
// configured with chained setters and then consumed by Run, which:
//
//  1. constructs the collector handle,
//  2. renders the index page from the telemetry path,
//  3. registers GET / and GET <telemetry path>,
//  4. binds the listen address,
//  5. serves until the listener fails.
//
// Everything before step 5 happens on the calling goroutine, so no request
// can observe partially built state. The shared state is never written
// once serving starts.
//
// Lifecycle: Unbound -> Bound -> Serving -> (Terminated | Failed). There is
// no graceful shutdown; the process ends on an external signal.
//
// -----------------------------------------------------------------------

package httpd

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/afreidah/jail-exporter/internal/collector"
	"github.com/afreidah/jail-exporter/internal/config"
	"github.com/afreidah/jail-exporter/internal/handlers"
	"github.com/afreidah/jail-exporter/internal/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func logs() *slog.Logger { return slog.Default().With("component", "httpd") }

// -----------------------------------------------------------------------
// Lifecycle State
// -----------------------------------------------------------------------

// State is the lifecycle position of a Server.
type State int32

const (
	// Unbound is a configured Server that has not tried to listen yet.
	Unbound State = iota

	// Bound means the listener is open but requests are not yet accepted.
	Bound

	// Serving means the accept loop is running.
	Serving

	// Terminated means the server was closed and Run returned nil.
	Terminated

	// Failed means Run gave up: rendering, binding or serving failed.
	Failed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Unbound:
		return "unbound"
	case Bound:
		return "bound"
	case Serving:
		return "serving"
	case Terminated:
		return "terminated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// BindError reports a failure to listen on the configured address.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("failed to bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// -----------------------------------------------------------------------
// Builder
// -----------------------------------------------------------------------

// Server holds the endpoint configuration. Setters perform no validation;
// values are expected to have passed the config package already.
type Server struct {
	bindAddress   string
	telemetryPath string
	collector     collector.Collector
	limiter       *ratelimit.Manager
	onReady       func(net.Addr)

	state atomic.Int32
}

// New returns a Server listening on 127.0.0.1:9452 and serving metrics
// under /metrics.
func New() *Server {
	return &Server{
		bindAddress:   config.DefaultListenAddress,
		telemetryPath: config.DefaultTelemetryPath,
	}
}

// BindAddress sets the ADDR:PORT to listen on.
func (s *Server) BindAddress(addr string) *Server {
	logs().Debug("setting server bind address", "bind_address", addr)
	s.bindAddress = addr
	return s
}

// TelemetryPath sets the path metrics are served under.
func (s *Server) TelemetryPath(path string) *Server {
	logs().Debug("setting server telemetry path", "telemetry_path", path)
	s.telemetryPath = path
	return s
}

// Collector overrides the collector handle. Without it Run uses
// collector.New().
func (s *Server) Collector(c collector.Collector) *Server {
	s.collector = c
	return s
}

// RateLimiter throttles the telemetry route per client. nil disables it.
func (s *Server) RateLimiter(m *ratelimit.Manager) *Server {
	s.limiter = m
	return s
}

// OnReady registers a callback invoked with the bound address just before
// the server starts accepting connections.
func (s *Server) OnReady(fn func(net.Addr)) *Server {
	s.onReady = fn
	return s
}

// ListenAddress returns the configured bind address.
func (s *Server) ListenAddress() string { return s.bindAddress }

// Path returns the configured telemetry path.
func (s *Server) Path() string { return s.telemetryPath }

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// -----------------------------------------------------------------------
// Router
// -----------------------------------------------------------------------

// Handler constructs the collector handle, renders the index page and
// returns the routed handler. It performs no network I/O.
func (s *Server) Handler() (http.Handler, error) {
	c := s.collector
	if c == nil {
		c = collector.New()
	}

	page, err := RenderIndexPage(s.telemetryPath)
	if err != nil {
		return nil, err
	}

	state := &handlers.AppState{
		Collector: c,
		IndexPage: page,
	}

	return s.routes(state), nil
}

// routes registers the index route and dispatches the telemetry path from
// the router's NotFound hook. The telemetry path is compared literally;
// registered as a chi route, "*" and "{...}" in it would act as wildcards.
func (s *Server) routes(state *handlers.AppState) http.Handler {
	path := s.telemetryPath

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(handlers.RequestLogger(routeLabel(path)))
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		handlers.IndexHandler(w, r, state)
	})

	var telemetry http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.MetricsHandler(w, r, state)
	})
	if s.limiter != nil {
		telemetry = s.limiter.Middleware(telemetry)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path != path:
			http.NotFound(w, r)
		case r.Method != http.MethodGet:
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		default:
			telemetry.ServeHTTP(w, r)
		}
	})

	return r
}

// routeLabel names the route a request hit for request metrics. Every
// unrouted path is "other".
func routeLabel(telemetryPath string) func(*http.Request) string {
	return func(r *http.Request) string {
		switch r.URL.Path {
		case "/":
			return "index"
		case telemetryPath:
			return "metrics"
		default:
			return "other"
		}
	}
}

// -----------------------------------------------------------------------
// Run
// -----------------------------------------------------------------------

// Run builds the handler, binds the listen address and serves. It only
// returns on failure: a *RenderError, a *BindError, or the error that
// ended the accept loop.
func (s *Server) Run() error {
	handler, err := s.Handler()
	if err != nil {
		s.state.Store(int32(Failed))
		return err
	}

	logs().Debug("attempting to bind", "bind_address", s.bindAddress)
	ln, err := net.Listen("tcp", s.bindAddress)
	if err != nil {
		s.state.Store(int32(Failed))
		return &BindError{Address: s.bindAddress, Err: err}
	}
	s.state.Store(int32(Bound))

	return s.serve(ln, handler)
}

func (s *Server) serve(ln net.Listener, handler http.Handler) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          slog.NewLogLogger(logs().Handler(), slog.LevelWarn),
	}

	if s.onReady != nil {
		s.onReady(ln.Addr())
	}

	logs().Info("starting HTTP server",
		"listen_address", ln.Addr().String(),
		"telemetry_path", s.telemetryPath,
	)

	s.state.Store(int32(Serving))
	err := srv.Serve(ln)

	if errors.Is(err, http.ErrServerClosed) {
		s.state.Store(int32(Terminated))
		return nil
	}

	s.state.Store(int32(Failed))
	return fmt.Errorf("http server on %s failed: %w", ln.Addr(), err)
}
