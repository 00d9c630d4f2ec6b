package capability

import "fmt"

type baseKind uint8

const (
	kindInvalid baseKind = iota
	kindString
	kindInteger
	kindBoolean
	kindDateTime
)

var baseKindNames = map[baseKind]string{
	kindString:   "string",
	kindInteger:  "integer",
	kindBoolean:  "boolean",
	kindDateTime: "datetime",
}

// Kind is the declared type of a capability parameter.
// The zero Kind is invalid.
type Kind struct {
	base     baseKind
	optional bool
}

// Parameter kinds
var (
	String   = Kind{base: kindString}
	Integer  = Kind{base: kindInteger}
	Boolean  = Kind{base: kindBoolean}
	DateTime = Kind{base: kindDateTime}
)

// Optional wraps a kind so that an explicit null binds as a null value.
// Optional(Optional(k)) is the same as Optional(k).
func Optional(k Kind) Kind {
	k.optional = true
	return k
}

// IsOptional reports whether the kind accepts an explicit null.
func (k Kind) IsOptional() bool {
	return k.optional
}

// Elem returns the kind with the optional wrapper removed.
func (k Kind) Elem() Kind {
	return Kind{base: k.base}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := baseKindNames[k.base]
	return ok
}

func (k Kind) String() string {
	name, ok := baseKindNames[k.base]
	if !ok {
		name = fmt.Sprintf("kind(%d)", k.base)
	}
	if k.optional {
		return "optional<" + name + ">"
	}
	return name
}

// jsonSchemaType maps the kind to a JSON Schema type keyword.
func (k Kind) jsonSchemaType() any {
	var t string
	switch k.base {
	case kindInteger:
		t = "integer"
	case kindBoolean:
		t = "boolean"
	default:
		t = "string"
	}
	if k.optional {
		return []string{t, "null"}
	}
	return t
}
