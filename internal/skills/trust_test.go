package skills

import (
	"testing"

	"github.com/gearclaw/gearclaw/internal/config"
)

func TestCheckTrust_LocalOnly(t *testing.T) {
	local := config.SkillSourceConfig{Kind: "local_dir", Trusted: false}
	git := config.SkillSourceConfig{Kind: "git", Trusted: true}

	if !CheckTrust(config.TrustLocalOnly, local) {
		t.Error("expected local_dir source to be installable under local-only policy")
	}
	if CheckTrust(config.TrustLocalOnly, git) {
		t.Error("expected non-local source to be rejected under local-only policy, even if trusted")
	}
}

func TestCheckTrust_TrustedOnly(t *testing.T) {
	trusted := config.SkillSourceConfig{Kind: "git", Trusted: true}
	untrusted := config.SkillSourceConfig{Kind: "git", Trusted: false}

	if !CheckTrust(config.TrustTrustedOnly, trusted) {
		t.Error("expected trusted source to be installable under trusted-only policy")
	}
	if CheckTrust(config.TrustTrustedOnly, untrusted) {
		t.Error("expected untrusted source to be rejected under trusted-only policy")
	}
}

func TestCheckTrust_AllowUntrusted(t *testing.T) {
	untrusted := config.SkillSourceConfig{Kind: "http", Trusted: false}
	if !CheckTrust(config.TrustAllowUntrusted, untrusted) {
		t.Error("expected allow-untrusted policy to permit any source")
	}
}

func TestCheckTrust_DefaultFallsBackToTrustedOnly(t *testing.T) {
	trusted := config.SkillSourceConfig{Kind: "git", Trusted: true}
	untrusted := config.SkillSourceConfig{Kind: "git", Trusted: false}
	if !CheckTrust("", trusted) {
		t.Error("expected zero-value policy to behave like trusted-only for a trusted source")
	}
	if CheckTrust("", untrusted) {
		t.Error("expected zero-value policy to behave like trusted-only for an untrusted source")
	}
}
