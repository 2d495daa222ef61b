// Package app provides the core application orchestration for the jail
// exporter.
//
// Startup is strictly sequential: configuration is loaded and validated,
// preflight checks run, and only then is either the textfile written or the
// HTTP server bound. Every startup failure is fatal and reported on stderr
// with a non-zero exit status. Once serving, failures are contained to the
// request that hit them.
//
// The app package is the composition root: validation lives in config, host
// checks in preflight, rendering in collector, and serving in httpd.
package app

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/afreidah/jail-exporter/internal/collector"
	"github.com/afreidah/jail-exporter/internal/config"
	"github.com/afreidah/jail-exporter/internal/httpd"
	"github.com/afreidah/jail-exporter/internal/logging"
	"github.com/afreidah/jail-exporter/internal/preflight"
	"github.com/afreidah/jail-exporter/internal/ratelimit"
	"github.com/afreidah/jail-exporter/internal/textfile"
	"github.com/afreidah/jail-exporter/internal/version"
	"github.com/coreos/go-systemd/v22/daemon"
)

// Process hooks, replaced in tests.
var (
	exit             = os.Exit
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func loga() *slog.Logger { return slog.Default().With("component", "app") }

// Configuration & Preflight
//
// Both steps run before any socket is opened. A failure in either prints a
// human-readable message and exits with status 1.

// MustLoadConfig initializes logging, then parses and validates args. --help
// and --version exit with status 0.
func MustLoadConfig(args []string) *config.Config {
	logging.InitFromEnv(map[string]string{
		"service":    "jail-exporter",
		"version":    version.Version,
		"commit":     version.Commit,
		"build_date": version.BuildTime,
	})

	cfg, err := config.Load(args)
	switch {
	case errors.Is(err, config.ErrHelp):
		exit(0)
		return nil
	case errors.Is(err, config.ErrVersion):
		fmt.Fprintln(stdout, version.String())
		exit(0)
		return nil
	case err != nil:
		Fatal("configuration error", err)
		return nil
	}

	loga().Info("jail exporter starting",
		"listen_address", cfg.Web.ListenAddress,
		"telemetry_path", cfg.Web.TelemetryPath,
		"textfile_mode", cfg.TextfileMode(),
	)

	return cfg
}

// MustPassPreflight runs the privilege and RACCT/RCTL checks in order.
func MustPassPreflight(c *preflight.Checker) {
	if err := c.Run(); err != nil {
		Fatal("preflight check failed", err)
		return
	}
	loga().Debug("preflight checks passed")
}

// Fatal prints err on stderr and exits with status 1. The structured
// record is kept at debug level so the operator sees the error once.
func Fatal(msg string, err error) {
	loga().Debug(msg, "err", err)
	fmt.Fprintf(stderr, "jail-exporter: %v\n", err)
	exit(1)
}

// Run
//
// In textfile mode the metrics are rendered once and the process exits. In
// HTTP mode the server runs until the process is killed; Run only returns
// if serving fails.

// Run executes the configured mode. It returns nil only after a successful
// textfile write.
func Run(cfg *config.Config) error {
	if cfg.TextfileMode() {
		loga().Info("writing metrics textfile", "path", cfg.Output.FilePath)
		return textfile.Write(collector.New(), cfg.Output.FilePath, stdout)
	}

	srv := NewServer(cfg)
	return srv.Run()
}

// NewServer builds the HTTP server from validated configuration.
func NewServer(cfg *config.Config) *httpd.Server {
	srv := httpd.New().
		BindAddress(cfg.Web.ListenAddress).
		TelemetryPath(cfg.Web.TelemetryPath).
		OnReady(notifyReady)

	if cfg.Web.RateLimit > 0 {
		loga().Info("rate limiting telemetry path",
			"requests_per_sec", cfg.Web.RateLimit,
			"burst", cfg.Web.RateBurst,
		)
		srv.RateLimiter(ratelimit.New(cfg.Web.RateLimit, cfg.Web.RateBurst))
	}

	return srv
}

// notifyReady tells systemd (when supervised by it) that the socket is
// bound. Without NOTIFY_SOCKET this is a no-op.
func notifyReady(addr net.Addr) {
	sent, err := daemon.SdNotify(false, daemon.SdNotifyReady)
	if err != nil {
		loga().Warn("failed to notify service manager", "err", err)
		return
	}

	loga().Info("listening", "addr", addr.String(), "notified_service_manager", sent)
}
