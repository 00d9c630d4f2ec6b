package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/rs/zerolog/log"
)

// ErrMalformed marks text that could not be interpreted as a plan.
var ErrMalformed = errors.New("malformed tool plan")

// ParseError carries the diagnostic for malformed plan text.
type ParseError struct {
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformed, e.Detail)
}

// Is makes errors.Is(err, ErrMalformed) hold for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func malformed(err error, format string, args ...any) *ParseError {
	detail := fmt.Sprintf(format, args...)
	if err != nil {
		detail = detail + ": " + err.Error()
	}
	return &ParseError{Detail: detail, Err: err}
}

const toolCallsField = "tool_calls"

// wireCall is the shape of one element of tool_calls.
type wireCall struct {
	PluginName   string         `mapstructure:"plugin_name"`
	FunctionName string         `mapstructure:"function_name"`
	Arguments    map[string]any `mapstructure:"arguments"`
}

// Parser converts model output into plans. The zero value is a strict parser.
type Parser struct {
	embedded bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithEmbeddedPlan lets the parser pull the first JSON object carrying a
// tool_calls field out of surrounding conversational text.
func WithEmbeddedPlan() Option {
	return func(p *Parser) {
		p.embedded = true
	}
}

// NewParser creates a parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses text with a strict parser.
func Parse(text string) (ToolPlan, error) {
	return (&Parser{}).Parse(text)
}

// ParseOptional parses text that may be absent. A nil text is an empty plan.
func ParseOptional(text *string) (ToolPlan, error) {
	if text == nil {
		return ToolPlan{Calls: []PlannedCall{}}, nil
	}
	return Parse(*text)
}

// Parse converts text into a plan. Blank text yields an empty plan. Any
// structural problem yields a *ParseError matching ErrMalformed.
func (p *Parser) Parse(text string) (ToolPlan, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ToolPlan{Calls: []PlannedCall{}}, nil
	}

	root, err := decodeDocument(trimmed)
	if p.embedded && (err != nil || !hasField(root, toolCallsField)) {
		if embedded, ok := findEmbedded(trimmed); ok {
			log.Debug().Msg("Extracted tool plan from surrounding text")
			root, err = embedded, nil
		}
	}
	if err != nil {
		return ToolPlan{}, err
	}

	return buildPlan(root)
}

// decodeDocument decodes exactly one JSON object from text.
func decodeDocument(text string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed(err, "invalid JSON")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, malformed(nil, "unexpected data after plan at offset %d", dec.InputOffset())
	}

	root, ok := v.(map[string]any)
	if !ok {
		return nil, malformed(nil, "expected a JSON object, got %s", jsonKind(v))
	}
	return root, nil
}

// maxEmbeddedCandidates bounds how many '{' positions findEmbedded tries,
// keeping the scan linear in the length of text.
const maxEmbeddedCandidates = 64

// findEmbedded scans text for the first JSON object with a tool_calls field.
func findEmbedded(text string) (map[string]any, bool) {
	attempts := 0
	for i := 0; i < len(text) && attempts < maxEmbeddedCandidates; i++ {
		if text[i] != '{' {
			continue
		}
		attempts++

		dec := json.NewDecoder(strings.NewReader(text[i:]))
		dec.UseNumber()

		var candidate map[string]any
		if err := dec.Decode(&candidate); err != nil {
			continue
		}
		if hasField(candidate, toolCallsField) {
			return candidate, true
		}
	}
	return nil, false
}

func buildPlan(root map[string]any) (ToolPlan, error) {
	raw, ok, err := lookupField(root, toolCallsField)
	if err != nil {
		return ToolPlan{}, &ParseError{Detail: err.Error(), Err: err}
	}
	if !ok {
		return ToolPlan{}, malformed(nil, "missing %s field", toolCallsField)
	}
	if raw == nil {
		return ToolPlan{Calls: []PlannedCall{}}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return ToolPlan{}, malformed(nil, "%s must be an array, got %s", toolCallsField, jsonKind(raw))
	}

	calls := make([]PlannedCall, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return ToolPlan{}, malformed(nil, "%s[%d] must be an object, got %s", toolCallsField, i, jsonKind(item))
		}

		fields, err := normalizeCall(obj)
		if err != nil {
			return ToolPlan{}, malformed(err, "%s[%d]", toolCallsField, i)
		}

		var wc wireCall
		if err := mapstructure.Decode(fields, &wc); err != nil {
			return ToolPlan{}, malformed(err, "%s[%d]", toolCallsField, i)
		}

		args, err := convertArguments(wc.Arguments)
		if err != nil {
			return ToolPlan{}, malformed(err, "%s[%d].arguments", toolCallsField, i)
		}

		calls = append(calls, PlannedCall{
			Namespace: wc.PluginName,
			Function:  wc.FunctionName,
			Arguments: args,
		})
	}

	return ToolPlan{Calls: calls}, nil
}

var callFields = []string{"plugin_name", "function_name", "arguments"}

// normalizeCall keeps only the known fields of a call object, under their
// canonical names, so decoding never depends on map iteration order.
func normalizeCall(obj map[string]any) (map[string]any, error) {
	fields := make(map[string]any, len(callFields))
	for _, name := range callFields {
		v, ok, err := lookupField(obj, name)
		if err != nil {
			return nil, err
		}
		if ok {
			fields[name] = v
		}
	}
	return fields, nil
}

// convertArguments keeps strings as-is, nulls as nil, other scalars as
// their literal JSON text and nested values as compact JSON.
func convertArguments(raw map[string]any) (map[string]*string, error) {
	args := make(map[string]*string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case nil:
			args[k] = nil
		case string:
			s := val
			args[k] = &s
		case json.Number:
			s := val.String()
			args[k] = &s
		case bool:
			s := fmt.Sprintf("%t", val)
			args[k] = &s
		default:
			var buf bytes.Buffer
			enc := json.NewEncoder(&buf)
			enc.SetEscapeHTML(false)
			if err := enc.Encode(val); err != nil {
				return nil, fmt.Errorf("argument %s: %w", k, err)
			}
			s := strings.TrimRight(buf.String(), "\n")
			args[k] = &s
		}
	}
	return args, nil
}

// lookupField finds a key case-insensitively. An exact match wins; otherwise
// more than one case variant of name is a malformed document.
func lookupField(m map[string]any, name string) (any, bool, error) {
	if v, ok := m[name]; ok {
		return v, true, nil
	}

	var matches []string
	for k := range m {
		if strings.EqualFold(k, name) {
			matches = append(matches, k)
		}
	}

	switch len(matches) {
	case 0:
		return nil, false, nil
	case 1:
		return m[matches[0]], true, nil
	default:
		sort.Strings(matches)
		return nil, false, fmt.Errorf("ambiguous field %s: %s", name, strings.Join(matches, ", "))
	}
}

// hasField reports whether m carries name in any letter case.
func hasField(m map[string]any, name string) bool {
	_, ok, err := lookupField(m, name)
	return ok || err != nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
