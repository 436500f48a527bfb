package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/skills"
)

func searchSkillCmd() *cobra.Command {
	var source string
	var update bool

	cmd := &cobra.Command{
		Use:   "search-skill <query>",
		Short: "search configured skill sources for a matching skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			skillsDir := config.ExpandHome(cfg.Skills.Dir)
			ins := skills.NewInstaller(skillsDir, cfg.Skills)

			plans, err := ins.SearchSources(cmd.Context(), args[0], source, update)
			if err != nil {
				return err
			}
			for _, p := range plans {
				fmt.Printf("%s  (source=%s)\n", p.Skill.Name, p.Source.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "restrict the search to one configured source")
	cmd.Flags().BoolVar(&update, "update", false, "force a re-fetch of git-backed sources before searching")
	return cmd
}

func installSkillCmd() *cobra.Command {
	var source string
	var force, dryRun, update bool

	cmd := &cobra.Command{
		Use:   "install-skill <name>",
		Short: "install a skill from a configured source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			skillsDir := config.ExpandHome(cfg.Skills.Dir)
			ins := skills.NewInstaller(skillsDir, cfg.Skills)

			plan, err := ins.Install(cmd.Context(), args[0], skills.InstallOptions{
				SourceFilter: source,
				Force:        force,
				DryRun:       dryRun,
				Update:       update,
			})
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Printf("would install %q from %s into %s\n", plan.Skill.Name, plan.Source.Name, plan.Target)
				return nil
			}
			fmt.Printf("installed %q into %s\n", plan.Skill.Name, plan.Target)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "restrict installation to one configured source")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing install")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "show what would be installed without copying")
	cmd.Flags().BoolVar(&update, "update", false, "force a re-fetch of git-backed sources before installing")
	return cmd
}

func listSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sources",
		Short: "list configured skill sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			skillsDir := config.ExpandHome(cfg.Skills.Dir)
			ins := skills.NewInstaller(skillsDir, cfg.Skills)
			for _, src := range ins.Sources() {
				fmt.Printf("%-20s kind=%-10s trusted=%-5v enabled=%v  %s\n", src.Name, src.Kind, src.Trusted, src.Enabled, src.Location)
			}
			return nil
		},
	}
}

func listAuditCmd() *cobra.Command {
	var (
		limit                 int
		source, skill, status string
		since, until          int64
		output                string
	)

	cmd := &cobra.Command{
		Use:   "list-audit",
		Short: "list skill install audit records",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			skillsDir := config.ExpandHome(cfg.Skills.Dir)
			auditPath := filepath.Join(filepath.Dir(skillsDir), "skill_install_audit.log")
			log := skills.NewAuditLog(auditPath)

			records, err := log.Read(skills.AuditFilter{
				Source: source, Skill: skill, Status: status,
				SinceTS: since, UntilTS: until, Limit: limit,
			})
			if err != nil {
				return err
			}

			switch output {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			case "jsonl":
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, r := range records {
					if err := enc.Encode(r); err != nil {
						return err
					}
				}
				return nil
			default:
				for _, r := range records {
					fmt.Printf("ts=%d skill=%s source=%s status=%s policy=%s target=%s\n",
						r.Timestamp, r.Skill, r.Source, r.Status, r.Policy, r.Target)
				}
				return nil
			}
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "max records to return")
	cmd.Flags().StringVar(&source, "source", "", "filter by source name")
	cmd.Flags().StringVar(&skill, "skill", "", "filter by skill name")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().Int64Var(&since, "since", 0, "filter: unix timestamp lower bound")
	cmd.Flags().Int64Var(&until, "until", 0, "filter: unix timestamp upper bound")
	cmd.Flags().StringVar(&output, "output", "text", "output format: text, json, jsonl")
	return cmd
}

func trustPolicyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trust-policy",
		Short: "print the configured skill trust policy and each source's trust level",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			fmt.Printf("policy: %s\n", cfg.Skills.TrustPolicy)
			for _, src := range cfg.Skills.Sources {
				allowed := skills.CheckTrust(cfg.Skills.TrustPolicy, src)
				fmt.Printf("  %-20s trusted=%-5v require_signed=%-5v -> allowed=%v\n", src.Name, src.Trusted, src.RequireSigned, allowed)
			}
			return nil
		},
	}
}
