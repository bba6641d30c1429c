package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartSpan_Disabled(t *testing.T) {
	require.NoError(t, Init(Config{Enabled: false}, "test", nil))
	assert.False(t, Enabled())

	ctx, span := StartSpan(context.Background(), "noop")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Nil(t, Fields(ctx))
}

func TestStartSpan_Enabled(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Enabled: true, ServiceName: "signalforge-test"}, "test", &buf))
	assert.True(t, Enabled())

	ctx, span := StartSpan(context.Background(), "pipeline.run")
	fields := Fields(ctx)
	span.End()

	assert.True(t, span.SpanContext().IsValid())
	assert.Len(t, fields, 2)

	require.NoError(t, Shutdown(context.Background()))
	assert.False(t, Enabled())
	assert.Contains(t, buf.String(), "pipeline.run")
}
