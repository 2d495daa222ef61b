// -----------------------------------------------------------------------------
// Textfile Output
// -----------------------------------------------------------------------------
//
// Package textfile writes a single rendering of the metrics document for
// node_exporter's textfile collector. Files are replaced atomically: the
// document is written to a temporary file in the target directory and
// renamed over the destination, so the textfile collector never reads a
// half-written file.
//
// -----------------------------------------------------------------------------

package textfile

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/afreidah/jail-exporter/internal/collector"
	"github.com/afreidah/jail-exporter/internal/config"
	"github.com/google/renameio/v2"
)

// FileMode is the permission of the written file.
const FileMode = 0o644

// Write renders c once and writes it to path, or to stdout when path is
// config.StdoutSentinel.
func Write(c collector.Collector, path string, stdout io.Writer) error {
	body, err := c.Render()
	if err != nil {
		return err
	}

	if path == config.StdoutSentinel {
		if _, err := stdout.Write(body); err != nil {
			return fmt.Errorf("writing metrics to stdout: %w", err)
		}
		return nil
	}

	return writeAtomic(path, body)
}

// writeAtomic replaces path with body. The file always ends up with
// FileMode, whatever the umask or the permissions of the file it replaces.
func writeAtomic(path string, body []byte) error {
	pf, err := renameio.NewPendingFile(path, renameio.WithStaticPermissions(FileMode))
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer pf.Cleanup()

	if _, err := pf.Write(body); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	slog.Debug("wrote metrics textfile", "path", path, "bytes", len(body))
	return nil
}
