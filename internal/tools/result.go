// Package tools implements the Tool Registry & Executor (spec.md §4.2):
// the built-in tool catalog, the three-tier exec security policy, and
// the remote-tool-namespace router.
package tools

// Result is a Tool Result (spec.md §3): success flag, captured stdout
// (possibly truncated), optional error string.
type Result struct {
	Output  string
	IsError bool
}

// NewResult wraps successful tool output.
func NewResult(output string) *Result {
	return &Result{Output: output}
}

// ErrorResult wraps a tool failure; message becomes the captured error
// string surfaced to the LLM as "Error: <message>" (spec.md §4.5 failure
// semantics).
func ErrorResult(message string) *Result {
	return &Result{Output: message, IsError: true}
}
