package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Gateway.Port != want.Gateway.Port {
		t.Errorf("Gateway.Port = %d, want default %d", cfg.Gateway.Port, want.Gateway.Port)
	}
	if cfg.Tools.ExecSecurity != want.Tools.ExecSecurity {
		t.Errorf("Tools.ExecSecurity = %q, want default %q", cfg.Tools.ExecSecurity, want.Tools.ExecSecurity)
	}
}

func TestSaveThenLoad_RoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Gateway.Port = 9999
	cfg.Agent.Workspace = "/tmp/my-workspace"

	path := filepath.Join(t.TempDir(), "gearclaw.toml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Gateway.Port != 9999 {
		t.Errorf("reloaded Gateway.Port = %d, want 9999", reloaded.Gateway.Port)
	}
	if reloaded.Agent.Workspace != "/tmp/my-workspace" {
		t.Errorf("reloaded Agent.Workspace = %q, want /tmp/my-workspace", reloaded.Agent.Workspace)
	}
}

func TestExpandHome(t *testing.T) {
	if got := ExpandHome("/absolute/path"); got != "/absolute/path" {
		t.Errorf("ExpandHome should leave absolute paths untouched, got %q", got)
	}
	if got := ExpandHome(""); got != "" {
		t.Errorf("ExpandHome(\"\") = %q, want empty", got)
	}
	got := ExpandHome("~/workspace")
	if got == "~/workspace" {
		t.Error("expected ~ to be expanded to the home directory")
	}
}
