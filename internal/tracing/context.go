package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// RunIDKey is the context key for a dispatch run ID
	RunIDKey ContextKey = "run_id"
	// ConversationIDKey is the context key for the conversation that produced the plan
	ConversationIDKey ContextKey = "conversation_id"
	// CallIDKey is the context key for a single planned call
	CallIDKey ContextKey = "call_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID        string
	RunID          string
	ConversationID string
	CallID         string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewRunID generates a new run ID
func NewRunID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithConversationID adds the originating conversation ID to the context
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

// WithCallID adds a call ID to the context
func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, CallIDKey, callID)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetRunID retrieves the run ID from the context
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetConversationID retrieves the conversation ID from the context
func GetConversationID(ctx context.Context) string {
	return stringValue(ctx, ConversationIDKey)
}

// GetCallID retrieves the call ID from the context
func GetCallID(ctx context.Context) string {
	return stringValue(ctx, CallIDKey)
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:        GetTraceID(ctx),
		RunID:          GetRunID(ctx),
		ConversationID: GetConversationID(ctx),
		CallID:         GetCallID(ctx),
	}
}

// NewRunContext starts a dispatch run: it keeps an existing trace ID or
// creates one, and always assigns a fresh run ID.
func NewRunContext(ctx context.Context) context.Context {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	return WithRunID(ctx, NewRunID())
}
