package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// GitStatusTool implements git_status (spec.md §4.2): a read-only
// convenience wrapper equivalent to `exec git status` but without
// requiring git to be on the exec allowlist.
type GitStatusTool struct {
	workspace string
}

func NewGitStatusTool(workspace string) *GitStatusTool {
	return &GitStatusTool{workspace: workspace}
}

func (t *GitStatusTool) Name() string        { return "git_status" }
func (t *GitStatusTool) Description() string { return "Show the working tree status of the workspace's git repository" }
func (t *GitStatusTool) Parameters() map[string]interface{} {
	return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
}

func (t *GitStatusTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	cmd := exec.CommandContext(ctx, "git", "status", "--short", "--branch")
	cmd.Dir = t.workspace
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return ErrorResult(fmt.Sprintf("git status failed: %s", msg))
	}
	out := stdout.String()
	if out == "" {
		out = "working tree clean"
	}
	return NewResult(out)
}
