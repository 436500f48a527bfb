package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"time"
)

// defaultDenyPatterns complement the allowlist policy as a second,
// pattern-based layer of defense-in-depth against command strings that
// slip past argv-level checks (e.g. a single allowlisted-binary argument
// that itself embeds a dangerous pipeline via a subshell feature).
// Grounded on the teacher's internal/tools/shell.go denylist, trimmed to
// patterns still meaningful once execution no longer goes through a
// shell (the shell-metacharacter and pipe/redirect patterns are now
// handled structurally by Policy.checkAllowlist instead).
var defaultDenyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+-[rf]{1,2}\b`),
	regexp.MustCompile(`\b(shutdown|reboot|poweroff)\b`),
	regexp.MustCompile(`\bsudo\b`),
	regexp.MustCompile(`\b(mount|umount)\b`),
	regexp.MustCompile(`\bLD_PRELOAD\s*=`),
	regexp.MustCompile(`/var/run/docker\.sock`),
	regexp.MustCompile(`\b(xmrig|cpuminer|minerd)\b`),
}

// ExecTool is the built-in `exec` tool (spec.md §4.2). Execution directly
// spawns the given argument vector — never through a shell — and
// special-cases `cd` to mutate session working-directory state instead
// of spawning a process.
type ExecTool struct {
	policy  *Policy
	timeout time.Duration
}

// NewExecTool builds an exec tool enforcing policy.
func NewExecTool(policy *Policy) *ExecTool {
	return &ExecTool{policy: policy, timeout: 60 * time.Second}
}

func (t *ExecTool) Name() string        { return "exec" }
func (t *ExecTool) Description() string { return "Execute a command directly (no shell) and return its output" }
func (t *ExecTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "The binary to run",
			},
			"args": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "string"},
				"description": "Arguments to pass to the binary",
			},
		},
		"required": []string{"command"},
	}
}

// CwdUpdate names a new working directory. Execute does not produce one
// (it discards the cwd ExecuteWithCwd returns); ExecuteWithCwd returns
// the new cwd directly.
type CwdUpdate struct {
	NewCwd string
}

// ExecuteWithCwd runs argv[0](argv[1:]...) in cwd. If argv[0] == "cd" no
// process is spawned — instead the target directory is canonicalized
// against cwd and returned as the session's new working directory
// (spec.md §4.2 "Cd handling").
func (t *ExecTool) ExecuteWithCwd(ctx context.Context, argv []string, cwd string) (*Result, string) {
	if len(argv) == 0 {
		return ErrorResult("empty command"), cwd
	}

	if argv[0] == "cd" {
		target := cwd
		if len(argv) > 1 {
			target = argv[1]
		}
		if !filepath.IsAbs(target) {
			target = filepath.Join(cwd, target)
		}
		target = filepath.Clean(target)
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			return ErrorResult(fmt.Sprintf("cd: no such directory: %s", target)), cwd
		}
		return NewResult(target), target
	}

	if err := t.policy.Check(argv); err != nil {
		return ErrorResult(err.Error()), cwd
	}
	for _, pattern := range defaultDenyPatterns {
		for _, a := range argv {
			if pattern.MatchString(a) {
				return ErrorResult(fmt.Sprintf("command denied by safety policy: matches %s", pattern.String())), cwd
			}
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = cwd

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if runCtx.Err() == context.DeadlineExceeded {
		return ErrorResult(fmt.Sprintf("command timed out after %s", t.timeout)), cwd
	}
	if err != nil {
		msg := stderr.String()
		if msg == "" {
			msg = err.Error()
		}
		return ErrorResult(msg), cwd
	}

	out := stdout.String()
	if out == "" {
		out = "(command completed with no output)"
	}
	return NewResult(out), cwd
}

// Execute implements Tool for contexts that don't carry per-session cwd
// mutation, running in the process's working directory; the
// session-aware Orchestrator calls ExecuteWithCwd directly instead.
func (t *ExecTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	argv := buildArgv(args)
	cwd, _ := os.Getwd()
	res, _ := t.ExecuteWithCwd(ctx, argv, cwd)
	return res
}

func buildArgv(args map[string]interface{}) []string {
	command, _ := args["command"].(string)
	argv := []string{command}
	if raw, ok := args["args"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				argv = append(argv, s)
			}
		}
	}
	return argv
}
