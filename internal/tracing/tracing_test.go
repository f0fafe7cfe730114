package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := Setup("kiosk-test", "stdout", &buf)
	require.NoError(t, err)

	_, span := otel.Tracer("kiosk").Start(context.Background(), "sale.commit")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"sale.commit"`)
	assert.Contains(t, buf.String(), "kiosk-test")
}

func TestSetupNone(t *testing.T) {
	shutdown, err := Setup("kiosk", "", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, err = Setup("kiosk", "jaeger", nil)
	assert.Error(t, err)
}
