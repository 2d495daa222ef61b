// -----------------------------------------------------------------------------
// Metrics Collector
// -----------------------------------------------------------------------------
//
// Package collector defines the handle the HTTP server and textfile writer
// use to obtain the current metrics document, plus the default
// implementation backed by a Prometheus gatherer.
//
// A handle is a small value wrapping a shared gatherer: copying it does not
// copy any metric state, and Render is safe to call from any number of
// goroutines at once.
//
// -----------------------------------------------------------------------------

package collector

import (
	"bytes"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Format is the exposition format produced by Render.
var Format = expfmt.NewFormat(expfmt.TypeTextPlain)

// ContentType is the Content-Type header value for a rendered document.
var ContentType = string(Format)

// Collector renders the current metrics document.
type Collector interface {
	Render() ([]byte, error)
}

// CollectionError wraps a failure to gather or encode metrics.
type CollectionError struct {
	Err error
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("collecting metrics: %v", e.Err)
}

func (e *CollectionError) Unwrap() error {
	return e.Err
}

// -----------------------------------------------------------------------------
// Exporter
// -----------------------------------------------------------------------------

// Exporter is the default Collector. It renders whatever is registered on
// its gatherer in the text exposition format.
type Exporter struct {
	gatherer prometheus.Gatherer
}

// New returns an Exporter over the default Prometheus registry. It never
// fails and is cheap to call.
func New() *Exporter {
	return NewWithGatherer(prometheus.DefaultGatherer)
}

// NewWithGatherer returns an Exporter over g.
func NewWithGatherer(g prometheus.Gatherer) *Exporter {
	return &Exporter{gatherer: g}
}

// Render gathers every registered metric family and encodes it. A partial
// gather is treated as a failure so a scraper never receives a document
// that silently omits series.
func (e *Exporter) Render() ([]byte, error) {
	families, err := e.gatherer.Gather()
	if err != nil {
		return nil, &CollectionError{Err: err}
	}

	out, err := encode(families)
	if err != nil {
		return nil, &CollectionError{Err: err}
	}
	return out, nil
}

func encode(families []*dto.MetricFamily) ([]byte, error) {
	var buf bytes.Buffer

	enc := expfmt.NewEncoder(&buf, Format)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return nil, fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}

	return buf.Bytes(), nil
}
