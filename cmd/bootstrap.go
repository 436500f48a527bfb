package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gearclaw/gearclaw/internal/agent"
	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/channels"
	"github.com/gearclaw/gearclaw/internal/channels/discord"
	"github.com/gearclaw/gearclaw/internal/channels/telegram"
	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/mcp"
	"github.com/gearclaw/gearclaw/internal/memory"
	"github.com/gearclaw/gearclaw/internal/providers"
	"github.com/gearclaw/gearclaw/internal/session"
	"github.com/gearclaw/gearclaw/internal/tools"
)

// app bundles every long-lived collaborator the CLI's subcommands share,
// wired once from a loaded Config. Grounded on the teacher's runGateway
// bootstrap sequence (cmd/gateway.go), narrowed to this module's
// collaborator set.
type app struct {
	cfg      *config.Config
	bus      *bus.MessageBus
	sessions *session.Store
	registry *tools.Registry
	exec     *tools.ExecTool
	mcp      *mcp.Manager
	mem      *memory.Index
	provider providers.Provider
	orch     *agent.Orchestrator
	channels *channels.Manager
}

// newApp loads configuration and wires every collaborator up to (but not
// including) starting network listeners or channel adapters — suitable
// for one-shot CLI commands (`run`, `memory sync`, ...) as well as the
// long-running `gateway`/`chat` commands.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	workspace := config.ExpandHome(cfg.Agent.Workspace)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}

	sessionsDir := config.ExpandHome(cfg.Sessions.Storage)
	sessions, err := session.NewStore(sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	policy := tools.NewPolicy(cfg.Tools)
	registry := tools.NewRegistry()
	execTool := tools.NewExecTool(policy)
	registry.Register(execTool)
	registry.Register(tools.NewReadFileTool(workspace, cfg.Agent.RestrictToWorkspace))
	registry.Register(tools.NewWriteFileTool(workspace, cfg.Agent.RestrictToWorkspace))
	registry.Register(tools.NewListFilesTool(workspace, cfg.Agent.RestrictToWorkspace))
	registry.Register(tools.NewFileInfoTool(workspace, cfg.Agent.RestrictToWorkspace))
	registry.Register(tools.NewGitStatusTool(workspace))
	registry.Register(tools.NewDockerPsTool())
	if cfg.Tools.WebSearch.BraveEnabled || cfg.Tools.WebSearch.DDGEnabled {
		registry.Register(tools.NewWebSearchTool(tools.WebSearchConfig{
			BraveAPIKey:     cfg.Tools.WebSearch.BraveAPIKey,
			BraveEnabled:    cfg.Tools.WebSearch.BraveEnabled,
			BraveMaxResults: 5,
			DDGEnabled:      cfg.Tools.WebSearch.DDGEnabled,
			DDGMaxResults:   5,
			CacheTTL:        10 * time.Minute,
		}))
	}

	var mcpMgr *mcp.Manager
	if cfg.Tools.RemoteEnabled && len(cfg.Tools.MCPServers) > 0 {
		mcpMgr = mcp.NewManager()
		mcpMgr.Start(ctx, cfg.Tools.MCPServers)
		registry.SetRemote(mcpMgr)
	}

	provider := providers.NewOpenAIProvider(cfg.Providers.OpenAI.APIKey, cfg.Providers.OpenAI.APIBase, cfg.Agent.Model)

	memDBPath := config.ExpandHome(cfg.Memory.Dir) + "/index.db"
	memIdx, err := memory.Open(memDBPath, workspace, provider, cfg.Memory.Enabled)
	if err != nil {
		return nil, fmt.Errorf("open memory index: %w", err)
	}

	orch := agent.New(provider, registry, execTool, sessions, memIdx, cfg.Agent, cfg.Memory, cfg.Skills.Dir)

	msgBus := bus.NewMessageBus()
	chanMgr := channels.NewManager(msgBus)

	return &app{
		cfg:      cfg,
		bus:      msgBus,
		sessions: sessions,
		registry: registry,
		exec:     execTool,
		mcp:      mcpMgr,
		mem:      memIdx,
		provider: provider,
		orch:     orch,
		channels: chanMgr,
	}, nil
}

// registerChannels builds and registers every enabled channel adapter.
// Split from newApp since one-shot commands (run, memory, skills) never
// need a live Discord/Telegram connection.
func (a *app) registerChannels() error {
	if a.cfg.Channels.Discord.Enabled {
		ch, err := discord.New(a.cfg.Channels.Discord, a.bus)
		if err != nil {
			return fmt.Errorf("discord channel: %w", err)
		}
		a.channels.RegisterChannel("discord", ch)
	}
	if a.cfg.Channels.Telegram.Enabled {
		ch, err := telegram.New(a.cfg.Channels.Telegram, a.bus)
		if err != nil {
			return fmt.Errorf("telegram channel: %w", err)
		}
		a.channels.RegisterChannel("telegram", ch)
	}
	return nil
}

// Close releases the app's held resources (memory db, MCP connections).
// The orchestrator's skill-catalog watcher is not closed here.
func (a *app) Close() {
	if a.mcp != nil {
		a.mcp.Stop()
	}
	if a.mem != nil {
		if err := a.mem.Close(); err != nil {
			slog.Warn("close memory index", "error", err)
		}
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
