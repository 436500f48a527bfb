package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/memory"
	"github.com/gearclaw/gearclaw/internal/providers"
)

func memoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: "sync or search the workspace memory index",
	}
	cmd.AddCommand(memorySyncCmd())
	cmd.AddCommand(memorySearchCmd())
	return cmd
}

func openMemoryIndex(cfg *config.Config) (*memory.Index, error) {
	workspace := config.ExpandHome(cfg.Agent.Workspace)
	provider := providers.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Agent.Model)
	return memory.Open(config.ExpandHome(cfg.Memory.Dir)+"/index.db", workspace, provider, cfg.Memory.Enabled)
}

func memorySyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "re-index the workspace's markdown files",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			idx, err := openMemoryIndex(cfg)
			if err != nil {
				return err
			}
			defer idx.Close()
			return idx.Sync(cmd.Context())
		},
	}
}

func memorySearchCmd() *cobra.Command {
	var topK int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "search the workspace memory index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			if topK <= 0 {
				topK = cfg.Memory.TopK
			}
			idx, err := openMemoryIndex(cfg)
			if err != nil {
				return err
			}
			defer idx.Close()

			results, err := idx.Search(cmd.Context(), args[0], topK)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Printf("%.3f  %s:%d\n%s\n\n", r.Score, r.Path, r.StartLine, r.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "number of results (default: config memory.top_k)")
	return cmd
}
