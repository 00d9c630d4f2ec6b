package capability

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ParameterSpec declares one parameter of a capability.
type ParameterSpec struct {
	Name        string `json:"name"`
	Kind        Kind   `json:"-"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Invoker runs a capability with bound arguments.
type Invoker func(ctx context.Context, args BoundArguments) (string, error)

// Descriptor is the static metadata of an invocable function.
type Descriptor struct {
	Namespace   string
	Function    string
	Description string
	Parameters  []ParameterSpec
	Invoke      Invoker
}

// QualifiedName returns "<namespace>.<function>".
func (d *Descriptor) QualifiedName() string {
	return QualifiedName(d.Namespace, d.Function)
}

// QualifiedName joins a namespace and function the way outcomes and logs report them.
func QualifiedName(namespace, function string) string {
	return namespace + "." + function
}

func (d *Descriptor) validate() error {
	if d.Namespace == "" {
		return fmt.Errorf("%w: namespace cannot be empty", ErrInvalidDescriptor)
	}
	if d.Function == "" {
		return fmt.Errorf("%w: function cannot be empty for namespace %s", ErrInvalidDescriptor, d.Namespace)
	}
	if d.Invoke == nil {
		return fmt.Errorf("%w: %s has no invoker", ErrInvalidDescriptor, d.QualifiedName())
	}

	seen := make(map[string]bool, len(d.Parameters))
	for _, p := range d.Parameters {
		if p.Name == "" {
			return fmt.Errorf("%w: %s has a parameter with no name", ErrInvalidDescriptor, d.QualifiedName())
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: %s declares parameter %s twice", ErrInvalidDescriptor, d.QualifiedName(), p.Name)
		}
		if !p.Kind.Valid() {
			return fmt.Errorf("%w: %s parameter %s has invalid kind %s", ErrInvalidDescriptor, d.QualifiedName(), p.Name, p.Kind)
		}
		seen[p.Name] = true
	}

	return nil
}

// BoundArguments holds typed parameter values produced by the binder.
// Values are string, int64, bool or time.Time according to the parameter kind.
type BoundArguments struct {
	values map[string]any
	nulls  map[string]bool
}

// NewBoundArguments creates an empty argument set.
func NewBoundArguments() BoundArguments {
	return BoundArguments{
		values: make(map[string]any),
		nulls:  make(map[string]bool),
	}
}

// Set binds a typed value.
func (b BoundArguments) Set(name string, value any) {
	b.values[name] = value
	delete(b.nulls, name)
}

// SetNull binds an explicit null.
func (b BoundArguments) SetNull(name string) {
	b.nulls[name] = true
	delete(b.values, name)
}

// Has reports whether name is bound to a non-null value.
func (b BoundArguments) Has(name string) bool {
	_, ok := b.values[name]
	return ok
}

// IsNull reports whether name was bound to an explicit null.
func (b BoundArguments) IsNull(name string) bool {
	return b.nulls[name]
}

// Len returns the number of bound names, nulls included.
func (b BoundArguments) Len() int {
	return len(b.values) + len(b.nulls)
}

// Names returns the bound names sorted alphabetically, nulls included.
func (b BoundArguments) Names() []string {
	names := make([]string, 0, b.Len())
	for name := range b.values {
		names = append(names, name)
	}
	for name := range b.nulls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Value returns the raw bound value.
func (b BoundArguments) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// String returns a bound string value.
func (b BoundArguments) String(name string) (string, bool) {
	v, ok := b.values[name].(string)
	return v, ok
}

// Int returns a bound integer value.
func (b BoundArguments) Int(name string) (int64, bool) {
	v, ok := b.values[name].(int64)
	return v, ok
}

// Bool returns a bound boolean value.
func (b BoundArguments) Bool(name string) (bool, bool) {
	v, ok := b.values[name].(bool)
	return v, ok
}

// Time returns a bound datetime value.
func (b BoundArguments) Time(name string) (time.Time, bool) {
	v, ok := b.values[name].(time.Time)
	return v, ok
}
