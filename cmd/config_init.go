package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/internal/config"
)

func configSampleCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "config-sample",
		Short: "write a sample config.toml holding the default settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			if output == "" {
				output = "gearclaw.toml"
			}
			return config.Save(output, config.Default())
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "output path (default: ./gearclaw.toml)")
	return cmd
}

// initCmd runs a short interactive wizard (provider API key, workspace
// path, gateway port) and writes the result to the standard config
// location, so a first-time user doesn't have to hand-edit TOML.
func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "interactively create a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()

			var apiKey, workspace, port string
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("OpenAI-compatible API key").
						Value(&apiKey),
					huh.NewInput().
						Title("Workspace directory").
						Placeholder(cfg.Agent.Workspace).
						Value(&workspace),
					huh.NewInput().
						Title("Gateway port").
						Placeholder(fmt.Sprint(cfg.Gateway.Port)).
						Value(&port),
				),
			)
			if err := form.Run(); err != nil {
				return fmt.Errorf("init wizard: %w", err)
			}

			if apiKey != "" {
				cfg.Providers.OpenAI.APIKey = apiKey
			}
			if workspace != "" {
				cfg.Agent.Workspace = workspace
			}
			if port != "" {
				var p int
				if _, err := fmt.Sscanf(port, "%d", &p); err == nil && p > 0 {
					cfg.Gateway.Port = p
				}
			}

			home, err := os.UserHomeDir()
			if err != nil {
				return err
			}
			path := filepath.Join(home, ".gearclaw", "config.toml")
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", path)
			return nil
		},
	}
}
