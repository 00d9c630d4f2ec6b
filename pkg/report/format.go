package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Formatter renders a report for a particular audience.
type Formatter interface {
	Format(r ExecutionReport) (string, error)
}

// TextFormatter renders one line per call, suitable for relaying back to a
// model as the next turn's tool results.
type TextFormatter struct{}

// Format implements Formatter.
func (TextFormatter) Format(r ExecutionReport) (string, error) {
	if len(r.Outcomes) == 0 {
		return "No tools were called.", nil
	}

	var sb strings.Builder
	for i, o := range r.Outcomes {
		if i > 0 {
			sb.WriteByte('\n')
		}
		if o.Success {
			fmt.Fprintf(&sb, "[%d] %s succeeded: %s", i+1, o.QualifiedName(), o.Value)
			if o.Truncated {
				sb.WriteString(" [output truncated]")
			}
			continue
		}
		fmt.Fprintf(&sb, "[%d] %s failed (%s): %s", i+1, o.QualifiedName(), o.Kind, o.Detail)
	}
	return sb.String(), nil
}

// JSONFormatter renders the report as JSON for user interfaces and tooling.
type JSONFormatter struct {
	Indent bool
}

// Format implements Formatter.
func (f JSONFormatter) Format(r ExecutionReport) (string, error) {
	if r.Outcomes == nil {
		r.Outcomes = []CallOutcome{}
	}

	var (
		data []byte
		err  error
	)
	if f.Indent {
		data, err = json.MarshalIndent(r, "", "  ")
	} else {
		data, err = json.Marshal(r)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	return string(data), nil
}
