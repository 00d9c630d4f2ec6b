package observability

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/harun/toolplan/internal/tracing"
)

func TestAuditLogger_Record(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(&buf)

	ctx := tracing.WithCallID(tracing.WithRunID(context.Background(), "run-1"), "call-1")
	al.Record(ctx, AuditEvent{
		Type:       "call",
		Capability: "time.get_time",
		Action:     "invoke",
		Status:     "ok",
		Metadata:   map[string]any{"duration_ms": 3},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "call", entry["type"])
	assert.Equal(t, "time.get_time", entry["capability"])
	assert.Equal(t, "ok", entry["status"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, "call-1", entry["call_id"])
	assert.Equal(t, float64(3), entry["metadata"].(map[string]any)["duration_ms"])
}

func TestAuditLogger_RecordAddsSpanEvent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "call")

	var buf bytes.Buffer
	NewAuditLogger(&buf).Record(ctx, AuditEvent{Type: "call", Action: "invoke", Status: "execution_failed"})
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "invoke", spans[0].Events()[0].Name)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
}

func TestInitAuditLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit", "calls.log")

	require.NoError(t, InitAuditLogger(path))
	defer SetAuditLogger(NewAuditLogger(io.Discard))

	RecordCallAudit(context.Background(), "time.get_time", "ok", nil)
	RecordPlanAudit(context.Background(), "malformed", map[string]any{"detail": "invalid JSON"})
	require.NoError(t, GetAuditLogger().Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var types []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		types = append(types, entry["type"].(string))
	}
	assert.Equal(t, []string{"call", "plan"}, types)
}
