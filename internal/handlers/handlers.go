// -----------------------------------------------------------------------------
// HTTP Handlers
// -----------------------------------------------------------------------------
//
// This package implements the HTTP endpoint handlers for the exporter.
// Every handler receives the same *AppState, built once before the server
// starts accepting connections and never written afterwards, so handlers
// run concurrently without locking.
//
// Endpoints:
//   GET /                - Pre-rendered index page, always 200
//   GET <telemetry path> - Metrics document from the collector
//                          200 OK: rendered successfully
//                          500 Internal Server Error: collection failed
//
// A failed collection is contained to its own response. The next request
// calls the collector again.
//
// -----------------------------------------------------------------------------

package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/afreidah/jail-exporter/internal/collector"
	"github.com/afreidah/jail-exporter/internal/metrics"
)

func logh() *slog.Logger { return slog.Default().With("component", "handlers") }

// AppState is shared by every request handler for the life of the process.
type AppState struct {
	Collector collector.Collector
	IndexPage []byte
}

// -----------------------------------------------------------------------------
// Index Handler
// -----------------------------------------------------------------------------

// IndexHandler serves the index page rendered at startup.
func IndexHandler(w http.ResponseWriter, r *http.Request, state *AppState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(state.IndexPage)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(state.IndexPage); err != nil {
		logh().Debug("error writing index page", "err", err)
	}
}

// -----------------------------------------------------------------------------
// Metrics Handler
// -----------------------------------------------------------------------------

// MetricsHandler renders the current metrics and serves them in the text
// exposition format. A collection failure is logged and answered with 500;
// the server keeps running.
func MetricsHandler(w http.ResponseWriter, r *http.Request, state *AppState) {
	body, err := state.Collector.Render()
	if err != nil {
		metrics.CollectionFailures.Inc()
		logh().Error("metric collection failed", "path", r.URL.Path, "err", err)
		http.Error(w, "error collecting metrics: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", collector.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(body); err != nil {
		logh().Debug("error writing metrics", "err", err)
	}
}
