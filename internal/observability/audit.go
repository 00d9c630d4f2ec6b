package observability

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/harun/toolplan/internal/tracing"
)

// AuditEvent is one structured entry of the audit trail
type AuditEvent struct {
	Type       string         `json:"event_type"`
	Timestamp  time.Time      `json:"timestamp"`
	Capability string         `json:"capability,omitempty"`
	Action     string         `json:"action"` // e.g. "invoke", "resolve"
	Status     string         `json:"status"` // "ok" or an error kind
	RunID      string         `json:"run_id,omitempty"`
	CallID     string         `json:"call_id,omitempty"`
	TraceID    string         `json:"trace_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// AuditLogger writes audit events as JSON lines
type AuditLogger struct {
	logger zerolog.Logger
	mu     sync.Mutex
	file   *os.File
}

var (
	auditMu   sync.RWMutex
	auditInst = NewAuditLogger(io.Discard)
)

// NewAuditLogger creates an audit logger writing to w
func NewAuditLogger(w io.Writer) *AuditLogger {
	return &AuditLogger{
		logger: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// GetAuditLogger returns the process audit logger. Until InitAuditLogger is
// called, events are discarded.
func GetAuditLogger() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return auditInst
}

// InitAuditLogger directs the process audit trail to an append-only file
func InitAuditLogger(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	al := NewAuditLogger(file)
	al.file = file
	SetAuditLogger(al)
	return nil
}

// SetAuditLogger replaces the process audit logger
func SetAuditLogger(al *AuditLogger) {
	auditMu.Lock()
	defer auditMu.Unlock()
	auditInst = al
}

// Record emits an audit event and mirrors it onto the active span, if any
func (a *AuditLogger) Record(ctx context.Context, event AuditEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.RunID == "" {
		event.RunID = tracing.GetRunID(ctx)
	}
	if event.CallID == "" {
		event.CallID = tracing.GetCallID(ctx)
	}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		event.TraceID = span.SpanContext().TraceID().String()

		span.AddEvent(event.Action, trace.WithAttributes(
			attribute.String("audit.type", event.Type),
			attribute.String("audit.status", event.Status),
			attribute.String("audit.capability", event.Capability),
		))
	} else if event.TraceID == "" {
		event.TraceID = tracing.GetTraceID(ctx)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	entry := a.logger.Log().
		Str("type", event.Type).
		Str("action", event.Action).
		Str("status", event.Status).
		Time("at", event.Timestamp)

	if event.Capability != "" {
		entry.Str("capability", event.Capability)
	}
	if event.RunID != "" {
		entry.Str("run_id", event.RunID)
	}
	if event.CallID != "" {
		entry.Str("call_id", event.CallID)
	}
	if event.TraceID != "" {
		entry.Str("trace_id", event.TraceID)
	}
	if event.Metadata != nil {
		entry.Interface("metadata", event.Metadata)
	}

	entry.Msg("")
}

// Close closes the audit logger's file handle
func (a *AuditLogger) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// RecordCallAudit records the outcome of one planned call
func RecordCallAudit(ctx context.Context, capability, status string, metadata map[string]any) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:       "call",
		Capability: capability,
		Action:     "invoke",
		Status:     status,
		Metadata:   metadata,
	})
}

// RecordPlanAudit records a parsed or rejected plan
func RecordPlanAudit(ctx context.Context, status string, metadata map[string]any) {
	GetAuditLogger().Record(ctx, AuditEvent{
		Type:     "plan",
		Action:   "parse",
		Status:   status,
		Metadata: metadata,
	})
}
