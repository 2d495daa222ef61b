package httpd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIndexPage(t *testing.T) {
	page, err := RenderIndexPage("/metrics")
	require.NoError(t, err)

	body := string(page)
	assert.Contains(t, body, "<title>Jail Exporter</title>")
	assert.Contains(t, body, `<a href="/metrics">Metrics</a>`)
}

// TestRenderIndexPageEscapes verifies the path cannot break out of the
// href attribute.
func TestRenderIndexPageEscapes(t *testing.T) {
	page, err := RenderIndexPage(`/m"><script>alert(1)</script>`)
	require.NoError(t, err)

	assert.NotContains(t, string(page), "<script>")
}
