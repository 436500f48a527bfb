package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gearclaw/gearclaw/internal/agent"
	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/channels"
	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/gateway"
	"github.com/gearclaw/gearclaw/internal/tracing"
)

func gatewayCmd() *cobra.Command {
	var (
		host                 string
		port                 int
		dev                  bool
		allowUnauthenticated bool
	)

	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "run the WebSocket gateway, channel adapters, and agent loop together",
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGateway(ctx, gatewayFlags{host: host, port: port, dev: dev, allowUnauthenticated: allowUnauthenticated})
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "override gateway bind host")
	cmd.Flags().IntVar(&port, "port", 0, "override gateway bind port")
	cmd.Flags().BoolVar(&dev, "dev", false, "dev mode: relax origin checks, verbose logging")
	cmd.Flags().BoolVar(&allowUnauthenticated, "allow-unauthenticated", false, "skip token authorization on every gateway method")
	return cmd
}

type gatewayFlags struct {
	host                 string
	port                 int
	dev                  bool
	allowUnauthenticated bool
}

func runGateway(ctx context.Context, flags gatewayFlags) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if flags.host != "" {
		a.cfg.Gateway.Host = flags.host
	}
	if flags.port != 0 {
		a.cfg.Gateway.Port = flags.port
	}
	if flags.dev {
		verbose = true
		setupLogging()
		a.cfg.Gateway.AllowedOrigins = nil
	}
	if flags.allowUnauthenticated {
		a.cfg.Gateway.AllowUnauthenticated = true
	}

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")})
	if err != nil {
		slog.Warn("tracing setup failed, continuing without export", "error", err)
	} else {
		defer shutdownTracing(context.Background())
	}

	if err := a.registerChannels(); err != nil {
		return err
	}

	forwardAgentEvents(a.bus, a.channels)

	if err := a.channels.StartAll(ctx); err != nil {
		return err
	}
	defer a.channels.StopAll(context.Background())

	go consumeInbound(ctx, a)

	srv := gateway.NewServer(a.cfg, a.bus, a.orch, a.sessions, a.channels)
	return srv.Start(ctx)
}

// consumeInbound drains channel-sourced messages off the bus, applies the
// trigger filter, and runs the orchestrator for any that qualify —
// mirroring what the gateway's own "agent" method does for gateway-
// originated requests (spec.md §4.6's channel-to-agent wiring).
func consumeInbound(ctx context.Context, a *app) {
	for {
		msg, ok := a.bus.ConsumeInbound(ctx)
		if !ok {
			return
		}
		if !agent.ShouldTrigger(msg, a.cfg.Channels.Trigger) {
			continue
		}

		sessionID := msg.Channel + ":" + msg.ChatID
		content := msg.Content
		if prefix, matched := agent.ExtractMentionPrefix(msg.Content, a.cfg.Channels.Trigger); matched {
			content = prefix
		}

		go func(sessionID, content, channelName, chatID string) {
			reply, err := a.orch.Run(ctx, sessionID, content, nil)
			if err != nil {
				slog.Error("gateway: agent run failed", "session", sessionID, "error", err)
				return
			}
			if reply == "" {
				return
			}
			a.bus.PublishOutbound(bus.OutboundMessage{Channel: channelName, ChatID: chatID, Content: reply})
		}(sessionID, content, msg.Channel, msg.ChatID)
	}
}

// forwardAgentEvents subscribes the channel manager's streaming/reaction
// handling to events broadcast on the bus. Events are passed with an
// empty run id, and HandleAgentEvent ignores ids that were not registered
// with RegisterRun, so no event reaches a channel through this hook; the
// orchestrator does not broadcast its stream chunks on the bus either.
func forwardAgentEvents(msgBus *bus.MessageBus, mgr *channels.Manager) {
	msgBus.Subscribe("gateway-agent-events", func(event bus.Event) {
		mgr.HandleAgentEvent(event.Name, "", event.Payload)
	})
}
