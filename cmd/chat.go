package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "start an interactive REPL against the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = "cli-" + uuid.NewString()
			}
			fmt.Fprintf(os.Stderr, "session: %s (Ctrl+D to exit)\n", sessionID)

			scanner := bufio.NewScanner(os.Stdin)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					return nil
				}
				line := scanner.Text()
				if line == "" {
					continue
				}
				reply, err := a.orch.Run(ctx, sessionID, line, func(chunk string) { fmt.Print(chunk) })
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
					continue
				}
				if reply != "" {
					fmt.Println()
				}
			}
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "session id (default: a freshly generated one)")
	return cmd
}

func runCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "run <prompt>",
		Short: "send one message to the agent and print its reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if sessionID == "" {
				sessionID = "run-" + uuid.NewString()
			}

			reply, err := runOneShot(ctx, a, sessionID, args[0])
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id to continue (default: a freshly generated one)")
	return cmd
}

func runOneShot(ctx context.Context, a *app, sessionID, prompt string) (string, error) {
	return a.orch.Run(ctx, sessionID, prompt, nil)
}
