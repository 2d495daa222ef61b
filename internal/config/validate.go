package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"os"
	"path/filepath"
	"strings"
)

// StdoutSentinel asks for metrics to be written to standard output.
const StdoutSentinel = "-"

// RequiredExtension is the extension node_exporter's textfile collector
// picks up.
const RequiredExtension = ".prom"

// ValidationError reports a configuration value that breaks a rule.
type ValidationError struct {
	Flag   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Reason)
}

// ValidateFilesystemPath checks the value of --output.file-path. Only
// filesystem stat calls are performed; nothing is created.
func ValidateFilesystemPath(s string) error {
	slog.Debug("ensuring that output.file-path is valid")

	if s == StdoutSentinel {
		return nil
	}

	invalid := func(reason string) error {
		return &ValidationError{Flag: "output.file-path", Reason: reason}
	}

	if !filepath.IsAbs(s) {
		return invalid("only absolute paths are accepted")
	}

	if fi, err := os.Stat(s); err == nil && fi.IsDir() {
		return invalid("must not point at a directory")
	}

	if filepath.Ext(s) != RequiredExtension {
		return invalid("must have " + RequiredExtension + " extension")
	}

	fi, err := os.Stat(filepath.Dir(s))
	if err != nil || !fi.IsDir() {
		return invalid("directory must exist")
	}

	return nil
}

// ValidateSocketAddress checks that s is an ADDR:PORT pair with a literal
// IPv4 or IPv6 address. IPv6 addresses must be bracketed and the port is
// mandatory.
func ValidateSocketAddress(s string) error {
	slog.Debug("ensuring that web.listen-address is valid")

	ap, err := netip.ParseAddrPort(s)
	if err != nil || ap.Addr().Zone() != "" {
		return &ValidationError{
			Flag:   "web.listen-address",
			Reason: fmt.Sprintf("'%s' is not a valid ADDR:PORT string", s),
		}
	}

	return nil
}

// ValidateTelemetryPath performs a shallow check of the telemetry path.
// No normalization is done: traversal sequences and repeated slashes are
// accepted as given.
func ValidateTelemetryPath(s string) error {
	slog.Debug("ensuring that web.telemetry-path is valid")

	invalid := func(reason string) error {
		return &ValidationError{Flag: "web.telemetry-path", Reason: reason}
	}

	switch {
	case s == "":
		return invalid("path must not be empty")
	case !strings.HasPrefix(s, "/"):
		return invalid("path must start with /")
	case s == "/":
		return invalid("path must not be /")
	}

	return nil
}
