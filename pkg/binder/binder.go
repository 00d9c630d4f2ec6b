// Package binder converts the string-keyed, string-valued arguments of a
// planned call into the typed values a capability declares.
//
// Binding is pure: it performs no I/O and never modifies its input.
package binder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/harun/toolplan/pkg/capability"
)

var (
	// ErrMissingRequired is matched by a BindError for an absent or null required parameter.
	ErrMissingRequired = errors.New("missing required argument")
	// ErrTypeMismatch is matched by a BindError for a value that does not convert to its kind.
	ErrTypeMismatch = errors.New("argument type mismatch")
)

// BindError describes why one parameter could not be bound.
type BindError struct {
	Reason error
	Name   string
	Kind   capability.Kind
	Raw    string
	Err    error
}

func (e *BindError) Error() string {
	if e.Reason == ErrTypeMismatch {
		msg := fmt.Sprintf("%s: %s expects %s, got %q", e.Reason, e.Name, e.Kind, e.Raw)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Name)
}

// Is matches the sentinel stored in Reason.
func (e *BindError) Is(target error) bool {
	return target == e.Reason
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// Bind converts arguments according to parameters. The first failing
// parameter, in declaration order, is reported. Arguments that no parameter
// declares are ignored.
func Bind(arguments map[string]*string, parameters []capability.ParameterSpec) (capability.BoundArguments, error) {
	bound := capability.NewBoundArguments()

	for _, param := range parameters {
		raw, present := arguments[param.Name]

		if !present || raw == nil {
			if param.Required {
				return capability.BoundArguments{}, &BindError{
					Reason: ErrMissingRequired,
					Name:   param.Name,
					Kind:   param.Kind,
				}
			}
			if present && param.Kind.IsOptional() {
				bound.SetNull(param.Name)
			}
			continue
		}

		value, err := Convert(*raw, param.Kind)
		if err != nil {
			return capability.BoundArguments{}, &BindError{
				Reason: ErrTypeMismatch,
				Name:   param.Name,
				Kind:   param.Kind,
				Raw:    *raw,
				Err:    err,
			}
		}
		bound.Set(param.Name, value)
	}

	return bound, nil
}

// Convert turns a raw argument into the Go value for kind: string, int64,
// bool or time.Time.
func Convert(raw string, kind capability.Kind) (any, error) {
	switch kind.Elem() {
	case capability.String:
		return raw, nil
	case capability.Integer:
		// base 10 only; cast would read "010" as octal
		return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	case capability.Boolean:
		return cast.ToBoolE(strings.ToLower(strings.TrimSpace(raw)))
	case capability.DateTime:
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return nil, errors.New("empty datetime")
		}
		return cast.ToTimeE(trimmed)
	default:
		return nil, fmt.Errorf("unsupported kind %s", kind)
	}
}
