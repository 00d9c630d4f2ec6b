package capability

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"
)

type key struct {
	namespace string
	function  string
}

// Schema is a capability's qualified name paired with the JSON Schema of its parameters.
type Schema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Registry maps (namespace, function) to descriptors.
// It is written during startup and sealed before the first dispatch.
type Registry struct {
	mu      sync.Mutex
	entries map[key]*Descriptor
	schemas map[key]json.RawMessage
	order   []key
	sealed  atomic.Bool
}

// NewRegistry creates an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[key]*Descriptor),
		schemas: make(map[key]json.RawMessage),
	}
}

// Register adds a descriptor. The descriptor is copied; later changes by the
// caller do not affect the registry.
func (r *Registry) Register(d Descriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	schema, err := parameterSchema(d)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDescriptor, d.QualifiedName(), err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Load() {
		return fmt.Errorf("%w: cannot register %s", ErrRegistrySealed, d.QualifiedName())
	}

	k := key{namespace: d.Namespace, function: d.Function}
	if _, exists := r.entries[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateCapability, d.QualifiedName())
	}

	stored := d
	stored.Parameters = append([]ParameterSpec(nil), d.Parameters...)
	r.entries[k] = &stored
	r.schemas[k] = schema
	r.order = append(r.order, k)

	log.Debug().
		Str("capability", d.QualifiedName()).
		Int("parameters", len(d.Parameters)).
		Msg("Capability registered")

	return nil
}

// MustRegister is Register for startup code that cannot recover from a bad descriptor.
func (r *Registry) MustRegister(d Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Seal closes registration. Calling it more than once is harmless.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed.Swap(true) {
		return
	}

	log.Info().Int("capabilities", len(r.order)).Msg("Capability registry sealed")
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// Resolve looks up a capability. It never fails; a missing capability is
// reported as false. It panics if the registry has not been sealed.
func (r *Registry) Resolve(namespace, function string) (*Descriptor, bool) {
	if !r.sealed.Load() {
		panic("capability: Resolve called before Seal")
	}

	d, ok := r.entries[key{namespace: namespace, function: function}]
	return d, ok
}

// Len returns the number of registered capabilities.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.order)
}

// Descriptors returns the registered descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Descriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.entries[k])
	}
	return out
}

// Schemas returns the parameter schema of every capability in registration order.
func (r *Registry) Schemas() []Schema {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Schema, 0, len(r.order))
	for _, k := range r.order {
		d := r.entries[k]
		out = append(out, Schema{
			Name:        d.QualifiedName(),
			Description: d.Description,
			Parameters:  r.schemas[k],
		})
	}
	return out
}

// parameterSchema builds the JSON Schema of a descriptor's parameters and
// checks that it compiles.
func parameterSchema(d Descriptor) (json.RawMessage, error) {
	properties := make(map[string]any, len(d.Parameters))
	required := []string{}

	for _, p := range d.Parameters {
		prop := map[string]any{
			"type": p.Kind.jsonSchemaType(),
		}
		if p.Kind.Elem() == DateTime {
			prop["format"] = "date-time"
		}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	schemaMap := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schemaMap["required"] = required
	}

	if _, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap)); err != nil {
		return nil, err
	}

	data, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, err
	}
	return data, nil
}
