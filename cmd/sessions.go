package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/session"
)

func listSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-sessions",
		Short: "list known session ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			store, err := session.NewStore(config.ExpandHome(cfg.Sessions.Storage))
			if err != nil {
				return err
			}
			ids, err := store.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	}
}

func deleteSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-session <id>",
		Short: "delete a session by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return err
			}
			store, err := session.NewStore(config.ExpandHome(cfg.Sessions.Storage))
			if err != nil {
				return err
			}
			return store.Delete(args[0])
		},
	}
}
