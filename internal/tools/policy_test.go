package tools

import (
	"testing"

	"github.com/gearclaw/gearclaw/internal/config"
)

func newAllowlistPolicy(bins ...string) *Policy {
	return NewPolicy(config.ToolsConfig{
		ExecSecurity:  config.ExecAllowlist,
		ExecAllowlist: bins,
	})
}

func TestPolicy_Deny(t *testing.T) {
	p := NewPolicy(config.ToolsConfig{ExecSecurity: config.ExecDeny})
	if err := p.Check([]string{"ls"}); err == nil {
		t.Error("expected deny policy to reject every command")
	}
}

func TestPolicy_Full(t *testing.T) {
	p := NewPolicy(config.ToolsConfig{ExecSecurity: config.ExecFull})
	if err := p.Check([]string{"rm", "-rf", "/"}); err != nil {
		t.Errorf("full policy should allow anything, got error: %v", err)
	}
}

func TestPolicy_Allowlist_RejectsUnlistedBinary(t *testing.T) {
	p := newAllowlistPolicy("ls", "cat")
	if err := p.Check([]string{"curl", "http://example.com"}); err == nil {
		t.Error("expected unlisted binary to be rejected")
	}
}

func TestPolicy_Allowlist_AllowsListedBinary(t *testing.T) {
	p := newAllowlistPolicy("ls")
	if err := p.Check([]string{"ls", "-la"}); err != nil {
		t.Errorf("expected listed binary with plain args to be allowed, got: %v", err)
	}
}

func TestPolicy_Allowlist_RejectsShellMetacharacters(t *testing.T) {
	p := newAllowlistPolicy("ls")
	cases := [][]string{
		{"ls", "foo && rm -rf /"},
		{"ls", "foo; rm -rf /"},
		{"ls", "foo | cat"},
		{"ls", "$(whoami)"},
		{"ls", "`whoami`"},
	}
	for _, argv := range cases {
		if err := p.Check(argv); err == nil {
			t.Errorf("expected argv %v to be rejected for shell metacharacters", argv)
		}
	}
}

func TestPolicy_Allowlist_RejectsEvalFlags(t *testing.T) {
	p := newAllowlistPolicy("python", "node")
	if err := p.Check([]string{"python", "-c", "import os"}); err == nil {
		t.Error("expected python -c to be rejected as an eval flag")
	}
	if err := p.Check([]string{"node", "-e", "console.log(1)"}); err == nil {
		t.Error("expected node -e to be rejected as an eval flag")
	}
}

func TestPolicy_Allowlist_RejectsNonReadOnlySubcommands(t *testing.T) {
	p := newAllowlistPolicy("git", "docker")
	if err := p.Check([]string{"git", "push", "origin", "main"}); err == nil {
		t.Error("expected git push to be rejected as non-read-only")
	}
	if err := p.Check([]string{"docker", "rm", "container"}); err == nil {
		t.Error("expected docker rm to be rejected as non-read-only")
	}
}

func TestPolicy_Allowlist_AllowsReadOnlySubcommands(t *testing.T) {
	p := newAllowlistPolicy("git", "docker")
	if err := p.Check([]string{"git", "status"}); err != nil {
		t.Errorf("expected git status to be allowed, got: %v", err)
	}
	if err := p.Check([]string{"docker", "ps"}); err != nil {
		t.Errorf("expected docker ps to be allowed, got: %v", err)
	}
}

func TestPolicy_RejectsNULByte(t *testing.T) {
	p := NewPolicy(config.ToolsConfig{ExecSecurity: config.ExecFull})
	if err := p.Check([]string{"ls", "foo\x00bar"}); err == nil {
		t.Error("expected NUL byte in argument to be rejected under any policy")
	}
}

func TestPolicy_EmptyCommand(t *testing.T) {
	p := NewPolicy(config.ToolsConfig{ExecSecurity: config.ExecFull})
	if err := p.Check(nil); err == nil {
		t.Error("expected empty argv to be rejected")
	}
}
