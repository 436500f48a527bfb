package tools

import (
	"fmt"
	"strings"

	"github.com/gearclaw/gearclaw/internal/config"
)

// shellMetacharacters are rejected from every argument in allowlist mode
// (spec.md §4.2, invariant 2 of §8).
var shellMetacharacters = []string{"&&", "||", ";", "|", "`", "$(", "\n", "\r"}

// evalFlags forbid interpreter-eval invocations even when the binary
// itself is allowlisted (spec.md §4.2: "forbid eval flags").
var evalFlags = map[string][]string{
	"python":  {"-c"},
	"python3": {"-c"},
	"node":    {"-e", "--eval", "-p"},
}

// readOnlySubcommands forbid non-read-only git/docker/cargo subcommands
// (spec.md §4.2).
var readOnlySubcommands = map[string]map[string]bool{
	"git":    {"status": true, "log": true, "diff": true, "show": true, "branch": true, "remote": true},
	"docker": {"ps": true, "images": true, "inspect": true, "logs": true, "version": true},
	"cargo":  {"--version": true, "tree": true, "metadata": true},
}

// Policy implements the three-tier exec security model (spec.md §4.2).
type Policy struct {
	security  config.ExecSecurity
	allowlist map[string]bool
}

// NewPolicy builds a Policy from the tools config.
func NewPolicy(cfg config.ToolsConfig) *Policy {
	allow := make(map[string]bool, len(cfg.ExecAllowlist))
	for _, bin := range cfg.ExecAllowlist {
		allow[bin] = true
	}
	return &Policy{security: cfg.ExecSecurity, allowlist: allow}
}

// Check validates a command invocation against the configured security
// level before the executor is allowed to spawn it. argv[0] is the
// binary, argv[1:] are its arguments.
func (p *Policy) Check(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	for _, a := range argv {
		for i := 0; i < len(a); i++ {
			if a[i] == 0 {
				return fmt.Errorf("argument contains NUL byte")
			}
		}
	}

	switch p.security {
	case config.ExecDeny:
		return fmt.Errorf("exec denied by policy")
	case config.ExecFull:
		return nil
	case config.ExecAllowlist, "":
		return p.checkAllowlist(argv)
	default:
		return fmt.Errorf("exec denied by policy")
	}
}

func (p *Policy) checkAllowlist(argv []string) error {
	bin := argv[0]
	if !p.allowlist[bin] {
		return fmt.Errorf("binary %q not in exec allowlist", bin)
	}
	for _, a := range argv[1:] {
		for _, meta := range shellMetacharacters {
			if strings.Contains(a, meta) {
				return fmt.Errorf("argument %q contains disallowed shell metacharacter %q", a, meta)
			}
		}
	}
	if flags, ok := evalFlags[bin]; ok {
		for _, a := range argv[1:] {
			for _, flag := range flags {
				if a == flag {
					return fmt.Errorf("binary %q: eval flag %q is not allowed", bin, flag)
				}
			}
		}
	}
	if readOnly, ok := readOnlySubcommands[bin]; ok && len(argv) > 1 {
		sub := argv[1]
		if !readOnly[sub] {
			return fmt.Errorf("binary %q: subcommand %q is not read-only", bin, sub)
		}
	}
	return nil
}
