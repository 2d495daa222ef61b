// -----------------------------------------------------------------------------
// Version Information
// -----------------------------------------------------------------------------
//
// This package holds version metadata that is set at build time via ldflags.
//
// Build Command:
//   go build \
//     -ldflags="-X github.com/afreidah/jail-exporter/internal/version.Version=v0.16.0 \
//               -X github.com/afreidah/jail-exporter/internal/version.Commit=abc123def \
//               -X github.com/afreidah/jail-exporter/internal/version.BuildTime=2026-10-15T12:34:56Z" \
//     ./cmd/jail-exporter
//
// -----------------------------------------------------------------------------

package version

// Version is the semantic version of the application.
var Version = "dev"

// Commit is the Git commit hash.
var Commit = "unknown"

// BuildTime is the timestamp when the binary was built.
var BuildTime = "unknown"

// String returns a formatted version string.
// Example: "jail-exporter v0.16.0 (commit: abc123def, built: 2026-10-15T12:34:56Z)"
func String() string {
	return "jail-exporter " + Version + " (commit: " + Commit + ", built: " + BuildTime + ")"
}
