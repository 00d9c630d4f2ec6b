package plan

// ToolPlan is the ordered list of calls requested by the model.
// Order is the execution and reporting order.
type ToolPlan struct {
	Calls []PlannedCall `json:"calls"`
}

// Len returns the number of planned calls.
func (p ToolPlan) Len() int {
	return len(p.Calls)
}

// IsEmpty reports whether the plan requests no calls.
func (p ToolPlan) IsEmpty() bool {
	return len(p.Calls) == 0
}

// PlannedCall is one requested invocation. A nil argument value is an
// explicit null; a missing key is an absent argument.
type PlannedCall struct {
	Namespace string             `json:"plugin_name"`
	Function  string             `json:"function_name"`
	Arguments map[string]*string `json:"arguments"`
}

// QualifiedName returns "<namespace>.<function>".
func (c PlannedCall) QualifiedName() string {
	return c.Namespace + "." + c.Function
}

// Argument returns the raw value for name. present is false for a missing
// key; value is nil for an explicit null.
func (c PlannedCall) Argument(name string) (value *string, present bool) {
	value, present = c.Arguments[name]
	return value, present
}

// Equal reports whether two calls request the same invocation with the same arguments.
func (c PlannedCall) Equal(other PlannedCall) bool {
	if c.Namespace != other.Namespace || c.Function != other.Function {
		return false
	}
	if len(c.Arguments) != len(other.Arguments) {
		return false
	}
	for k, v := range c.Arguments {
		ov, ok := other.Arguments[k]
		if !ok {
			return false
		}
		if (v == nil) != (ov == nil) {
			return false
		}
		if v != nil && *v != *ov {
			return false
		}
	}
	return true
}

// Equal reports whether two plans contain equal calls in the same order.
func (p ToolPlan) Equal(other ToolPlan) bool {
	if len(p.Calls) != len(other.Calls) {
		return false
	}
	for i := range p.Calls {
		if !p.Calls[i].Equal(other.Calls[i]) {
			return false
		}
	}
	return true
}
