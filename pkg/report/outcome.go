// Package report holds per-call outcomes and the ordered ExecutionReport
// handed back to the conversation layer, plus formatters that present a
// report to a model or a user interface.
package report

import (
	"fmt"
	"time"
)

// ErrorKind classifies a failed call.
type ErrorKind string

const (
	UnknownCapability ErrorKind = "unknown_capability"
	InvalidArguments  ErrorKind = "invalid_arguments"
	ExecutionFailed   ErrorKind = "execution_failed"
	Cancelled         ErrorKind = "cancelled"
)

// CallOutcome is the result of one planned call: either a success value or
// a classified failure. Use Succeeded and Failed to build one.
type CallOutcome struct {
	CallID    string        `json:"call_id,omitempty"`
	Namespace string        `json:"plugin_name"`
	Function  string        `json:"function_name"`
	Success   bool          `json:"success"`
	Value     string        `json:"value,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
	Kind      ErrorKind     `json:"error_kind,omitempty"`
	Detail    string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(value string) CallOutcome {
	return CallOutcome{Success: true, Value: value}
}

// Failed builds a failure outcome.
func Failed(kind ErrorKind, detail string) CallOutcome {
	return CallOutcome{Kind: kind, Detail: detail}
}

// QualifiedName returns "<namespace>.<function>".
func (o CallOutcome) QualifiedName() string {
	return o.Namespace + "." + o.Function
}

// Status is "ok" for a success and the error kind otherwise.
func (o CallOutcome) Status() string {
	if o.Success {
		return "ok"
	}
	return string(o.Kind)
}

// Err returns nil for a success and an error describing the failure otherwise.
func (o CallOutcome) Err() error {
	if o.Success {
		return nil
	}
	return &OutcomeError{Kind: o.Kind, Detail: o.Detail}
}

// OutcomeError is the error form of a failed outcome.
type OutcomeError struct {
	Kind   ErrorKind
	Detail string
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}
