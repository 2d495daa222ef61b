package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/afreidah/jail-exporter/internal/metrics"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger returns middleware that writes one access log line per
// request and records request metrics under the given route label.
// Level is Info below 400, Warn for 4xx and Error for 5xx.
func RequestLogger(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				duration := time.Since(start)
				status := ww.Status()
				if status == 0 {
					// Nothing written; net/http will send 200.
					status = http.StatusOK
				}

				handler := route(r)
				metrics.RequestDuration.WithLabelValues(handler).Observe(duration.Seconds())
				metrics.RequestsTotal.WithLabelValues(handler, strconv.Itoa(status)).Inc()

				level := slog.LevelInfo
				if status >= 500 {
					level = slog.LevelError
				} else if status >= 400 {
					level = slog.LevelWarn
				}

				slog.Log(r.Context(), level, "HTTP request completed",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"duration", duration.String(),
					"bytes", ww.BytesWritten(),
					"request_id", middleware.GetReqID(r.Context()),
					"remote_ip", r.RemoteAddr,
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
