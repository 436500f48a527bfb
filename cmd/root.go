package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/pkg/protocol"
)

// Version is set at build time via -ldflags "-X github.com/gearclaw/gearclaw/cmd.Version=v1.0.0"
var Version = "dev"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gearclaw",
	Short: "gearclaw — agent gateway bridging chat platforms, an LLM backend, and tool execution",
	Long: `gearclaw runs a per-conversation agent loop against an OpenAI-compatible
streaming backend, executes tools under a configurable security policy, and
exposes both a CLI and a WebSocket gateway for channel adapters (Discord,
Telegram) and other clients.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: search order in docs)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(listSessionsCmd())
	rootCmd.AddCommand(deleteSessionCmd())
	rootCmd.AddCommand(memoryCmd())
	rootCmd.AddCommand(searchSkillCmd())
	rootCmd.AddCommand(installSkillCmd())
	rootCmd.AddCommand(listSourcesCmd())
	rootCmd.AddCommand(listAuditCmd())
	rootCmd.AddCommand(trustPolicyCmd())
	rootCmd.AddCommand(gatewayCmd())
	rootCmd.AddCommand(configSampleCmd())
	rootCmd.AddCommand(initCmd())
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gearclaw %s (protocol %d)\n", Version, protocol.ProtocolVersion)
		},
	}
}

func resolveConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if v := os.Getenv("GEARCLAW_CONFIG"); v != "" {
		return v
	}
	return ""
}

// Execute runs the root cobra command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
