package skills

import "github.com/gearclaw/gearclaw/internal/config"

// CheckTrust reports whether a source may be installed from under
// policy (spec.md §3 "Trust Policy"):
//   - local-only: only local_dir sources are installable.
//   - trusted-only: installable iff source.trusted is true.
//   - allow-untrusted: no restriction.
func CheckTrust(policy config.TrustPolicy, source config.SkillSourceConfig) bool {
	switch policy {
	case config.TrustLocalOnly:
		return source.Kind == "local_dir"
	case config.TrustAllowUntrusted:
		return true
	case config.TrustTrustedOnly:
		fallthrough
	default:
		return source.Trusted
	}
}
