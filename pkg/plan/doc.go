// Package plan turns raw model output into a ToolPlan.
//
// Empty or whitespace-only text is a valid, empty plan: the model chose not
// to call a tool. Anything else must be a JSON object with a tool_calls
// array; field names match case-insensitively and unknown fields are
// ignored. The parser knows nothing about which capabilities exist.
package plan
