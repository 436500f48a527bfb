package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Tool is one built-in tool: a Tool Spec plus its executor.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) *Result
}

// RemoteRegistry is the capability-set abstraction over an external
// (MCP) tool server, reached through the `__`-delimited tool namespace
// (spec.md §4.2 "Remote tool namespace"). Disabled is returned as a
// distinguishable error so the Orchestrator can surface the disabled
// state to the LLM rather than a generic tool-not-found.
type RemoteRegistry interface {
	Enabled() bool
	List() []ToolSpec
	Execute(ctx context.Context, server, tool string, args map[string]interface{}) *Result
}

// ToolSpec is the descriptor exposed to the LLM (spec.md §3).
type ToolSpec struct {
	Name               string
	Description        string
	RequiresArguments  bool
	Parameters         map[string]interface{}
}

// remoteDelimiter separates the remote server name from the tool name in
// a routed tool call, e.g. "github__create_issue".
const remoteDelimiter = "__"

// Registry holds the built-in catalog and an optional remote registry.
type Registry struct {
	builtins map[string]Tool
	remote   RemoteRegistry
}

// NewRegistry creates an empty registry. Register built-ins with
// Register, then attach a remote registry with SetRemote.
func NewRegistry() *Registry {
	return &Registry{builtins: map[string]Tool{}}
}

// Register adds a built-in tool to the catalog.
func (r *Registry) Register(t Tool) {
	r.builtins[t.Name()] = t
}

// SetRemote attaches the Remote Tool Registry collaborator.
func (r *Registry) SetRemote(remote RemoteRegistry) {
	r.remote = remote
}

// Specs returns the full catalog — built-in ∪ remote (if enabled) — as
// Tool Specs for the LLM call (spec.md §4.5 step 2).
func (r *Registry) Specs() []ToolSpec {
	specs := make([]ToolSpec, 0, len(r.builtins))
	names := make([]string, 0, len(r.builtins))
	for name := range r.builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := r.builtins[name]
		specs = append(specs, ToolSpec{
			Name:              t.Name(),
			Description:       t.Description(),
			RequiresArguments: len(t.Parameters()) > 0,
			Parameters:        t.Parameters(),
		})
	}
	if r.remote != nil && r.remote.Enabled() {
		specs = append(specs, r.remote.List()...)
	}
	return specs
}

// Execute dispatches a tool call by name. Names containing the `__`
// delimiter are routed to the Remote Tool Registry instead of built-ins
// (spec.md §4.2).
func (r *Registry) Execute(ctx context.Context, name string, args map[string]interface{}) *Result {
	if idx := strings.Index(name, remoteDelimiter); idx > 0 {
		server, tool := name[:idx], name[idx+len(remoteDelimiter):]
		if r.remote == nil || !r.remote.Enabled() {
			return ErrorResult(fmt.Sprintf("remote tool registry disabled: %s", name))
		}
		return r.remote.Execute(ctx, server, tool, args)
	}

	t, ok := r.builtins[name]
	if !ok {
		return ErrorResult(fmt.Sprintf("unknown tool: %s", name))
	}
	return t.Execute(ctx, args)
}
