package httpd

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"github.com/afreidah/jail-exporter/internal/version"
)

//go:embed templates/index.html
var indexHTML string

var indexTemplate = template.Must(template.New("index").Option("missingkey=error").Parse(indexHTML))

// RenderError reports that the index page could not be produced from the
// telemetry path.
type RenderError struct {
	TelemetryPath string
	Err           error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering index page for %q: %v", e.TelemetryPath, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderIndexPage renders the landing page linking to telemetryPath.
func RenderIndexPage(telemetryPath string) ([]byte, error) {
	var buf bytes.Buffer

	data := struct {
		TelemetryPath string
		Version       string
	}{
		TelemetryPath: telemetryPath,
		Version:       version.Version,
	}

	if err := indexTemplate.Execute(&buf, data); err != nil {
		return nil, &RenderError{TelemetryPath: telemetryPath, Err: err}
	}

	return buf.Bytes(), nil
}
