package skills

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gearclaw/gearclaw/internal/config"
)

// Installer resolves skill sources, fetches/caches git-backed ones,
// enforces trust policy, and copies a matched skill into the local
// skills root, recording an Audit Record either way (spec.md §4.3).
// Git fetch has no library anywhere in the pack (confirmed by repo-wide
// grep); git-backed sources shell out to the `git` binary, matching the
// pack's general idiom of shelling out for git operations
// (internal/tools/git_status.go).
type Installer struct {
	skillsDir string
	cacheDir  string
	audit     *AuditLog
	sources   []config.SkillSourceConfig
	policy    config.TrustPolicy
}

// NewInstaller wires an Installer from the skills config. skillsDir is
// the local skills root (spec.md §6's `<skills-dir>`); cacheDir and the
// audit log live as siblings per the same section.
func NewInstaller(skillsDir string, cfg config.SkillsConfig) *Installer {
	parent := filepath.Dir(skillsDir)
	return &Installer{
		skillsDir: skillsDir,
		cacheDir:  filepath.Join(parent, "skill_sources_cache"),
		audit:     NewAuditLog(filepath.Join(parent, "skill_install_audit.log")),
		sources:   effectiveSources(cfg.Sources, skillsDir),
		policy:    cfg.TrustPolicy,
	}
}

// effectiveSources returns cfg's configured sources, or a synthetic
// local-default source rooted at skillsDir when none are configured.
func effectiveSources(configured []config.SkillSourceConfig, skillsDir string) []config.SkillSourceConfig {
	if len(configured) > 0 {
		return configured
	}
	return []config.SkillSourceConfig{{
		Name:     "local-default",
		Kind:     "local_dir",
		Location: skillsDir,
		Enabled:  true,
		Trusted:  true,
	}}
}

// InstallOptions configures one Install call.
type InstallOptions struct {
	SourceFilter string
	Force        bool
	DryRun       bool
	Update       bool
}

// InstallPlan describes what Install would do, returned always; in
// dry-run mode it is the only effect (no copy, no audit record).
type InstallPlan struct {
	Skill       Skill
	Source      config.SkillSourceConfig
	SourceRoot  string
	Target      string
	Commit      string
	SigVerified bool
}

// Install resolves name against the configured sources, enforces trust
// policy, and (unless DryRun) copies the matched skill to the local
// skills root, appending an Audit Record.
func (ins *Installer) Install(ctx context.Context, name string, opts InstallOptions) (*InstallPlan, error) {
	var candidates []InstallPlan

	for _, src := range ins.sources {
		if !src.Enabled {
			continue
		}
		if opts.SourceFilter != "" && !strings.EqualFold(src.Name, opts.SourceFilter) {
			continue
		}

		root, commit, sigVerified, err := ins.materialize(ctx, src, opts.Update)
		if err != nil {
			return nil, fmt.Errorf("skills: materialize source %s: %w", src.Name, err)
		}

		found, err := Discover(root)
		if err != nil {
			continue
		}
		for _, s := range found {
			if strings.EqualFold(s.Name, name) {
				candidates = append(candidates, InstallPlan{Skill: s, Source: src, SourceRoot: root, Commit: commit, SigVerified: sigVerified})
			}
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("skills: skill %q not found", name)
	}
	if len(candidates) > 1 && opts.SourceFilter == "" {
		return nil, fmt.Errorf("skills: skill %q found in multiple sources, disambiguate with --source", name)
	}
	plan := candidates[0]

	if !CheckTrust(ins.policy, plan.Source) {
		ins.recordAudit(plan, "rejected_trust_policy")
		return nil, fmt.Errorf("skills: source %q disallowed by trust policy %q", plan.Source.Name, ins.policy)
	}

	target := filepath.Join(ins.skillsDir, sanitizeName(name))
	plan.Target = target

	if opts.DryRun {
		return &plan, nil
	}

	if _, err := os.Stat(target); err == nil {
		if !opts.Force {
			ins.recordAudit(plan, "rejected_exists")
			return nil, fmt.Errorf("skills: target %s already exists, use --force to overwrite", target)
		}
		if err := os.RemoveAll(target); err != nil {
			return nil, fmt.Errorf("skills: remove existing target: %w", err)
		}
	}

	if err := copyDir(plan.Skill.Path, target); err != nil {
		ins.recordAudit(plan, "failed")
		return nil, fmt.Errorf("skills: copy %s to %s: %w", plan.Skill.Path, target, err)
	}

	ins.recordAudit(plan, "installed")
	return &plan, nil
}

func (ins *Installer) recordAudit(plan InstallPlan, status string) {
	_ = ins.audit.Append(AuditRecord{
		Timestamp:   NowUnix(),
		Skill:       plan.Skill.Name,
		Source:      plan.Source.Name,
		Kind:        plan.Source.Kind,
		Location:    plan.Source.Location,
		Revision:    plan.Source.Revision,
		Commit:      plan.Commit,
		SigVerified: plan.SigVerified,
		Trusted:     plan.Source.Trusted,
		Policy:      string(ins.policy),
		Target:      plan.Target,
		Status:      status,
	})
}

// materialize returns a local directory holding src's skill tree. For
// local_dir this is the configured location unchanged. For git_repo, a
// cache directory is cloned (depth=1) on first use and re-fetched only
// when the TTL has expired or update is explicitly requested.
func (ins *Installer) materialize(ctx context.Context, src config.SkillSourceConfig, update bool) (root, commit string, sigVerified bool, err error) {
	if src.Kind != "git_repo" {
		return src.Location, "", false, nil
	}

	slug := sanitizeName(src.Name)
	dir := filepath.Join(ins.cacheDir, fmt.Sprintf("%s-%x", slug, stableHash(src.Location)))
	syncMarker := filepath.Join(dir, ".gearclaw_source_last_sync")

	needsFetch := update
	if !needsFetch {
		if info, statErr := os.Stat(syncMarker); statErr != nil {
			needsFetch = true
		} else if src.CacheTTLSeconds == 0 {
			needsFetch = true
		} else if time.Since(info.ModTime()) > time.Duration(src.CacheTTLSeconds)*time.Second {
			needsFetch = true
		}
	}

	if _, statErr := os.Stat(filepath.Join(dir, ".git")); statErr != nil {
		if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
			return "", "", false, err
		}
		if err := runGit(ctx, "", "clone", "--depth", "1", src.Location, dir); err != nil {
			return "", "", false, err
		}
		needsFetch = false
	} else if needsFetch {
		if err := runGit(ctx, dir, "fetch", "--depth", "1", "origin"); err != nil {
			return "", "", false, err
		}
	}

	rev := src.Revision
	if rev == "" {
		rev = "FETCH_HEAD"
	}
	if needsFetch || rev != "" {
		if err := runGit(ctx, dir, "checkout", "--detach", rev); err != nil {
			return "", "", false, err
		}
	}

	if src.RequireSigned {
		if err := runGit(ctx, dir, "verify-commit", "HEAD"); err != nil {
			return "", "", false, fmt.Errorf("signature verification failed: %w", err)
		}
		sigVerified = true
	}

	out, _ := exec.CommandContext(ctx, "git", "-C", dir, "rev-parse", "HEAD").Output()
	commit = strings.TrimSpace(string(out))

	_ = os.WriteFile(syncMarker, []byte(strconv.FormatInt(time.Now().Unix(), 10)), 0644)
	return dir, commit, sigVerified, nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, string(out))
	}
	return nil
}

// sanitizeName converts a skill/source name into a directory-safe
// variant: alphanumerics and `-_.` preserved, everything else collapsed
// to `-`, runs of `-` coalesced, leading/trailing `-` trimmed.
func sanitizeName(name string) string {
	var sb strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '.':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(sb.String(), "-")
}

func stableHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func copyDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0755); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	for _, e := range entries {
		srcPath := filepath.Join(src, e.Name())
		dstPath := filepath.Join(dst, e.Name())
		if e.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// SearchSources enumerates skills across every enabled, filterable
// source without installing, for the `search-skill` CLI subcommand.
// SearchSources materializes and searches every matching source
// concurrently — git-backed sources each pay their own clone/fetch
// latency, so one slow source no longer serializes the whole search.
func (ins *Installer) SearchSources(ctx context.Context, query, sourceFilter string, update bool) ([]InstallPlan, error) {
	var (
		mu      sync.Mutex
		results []InstallPlan
	)
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range ins.sources {
		if !src.Enabled {
			continue
		}
		if sourceFilter != "" && !strings.EqualFold(src.Name, sourceFilter) {
			continue
		}
		src := src
		g.Go(func() error {
			root, commit, sigVerified, err := ins.materialize(gctx, src, update)
			if err != nil {
				return nil
			}
			found, err := Discover(root)
			if err != nil {
				return nil
			}
			var matched []InstallPlan
			for _, s := range found {
				if query == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(query)) ||
					strings.Contains(strings.ToLower(s.Description), strings.ToLower(query)) {
					matched = append(matched, InstallPlan{Skill: s, Source: src, SourceRoot: root, Commit: commit, SigVerified: sigVerified})
				}
			}
			if len(matched) > 0 {
				mu.Lock()
				results = append(results, matched...)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return results, nil
}

// Sources returns the resolved source list (for the `list-sources` CLI
// subcommand).
func (ins *Installer) Sources() []config.SkillSourceConfig {
	return ins.sources
}
