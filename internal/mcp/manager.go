// Package mcp implements the Remote Tool Registry (spec.md §4.2 "Remote
// tool namespace", §6): a capability-set handle over external MCP
// servers, reached through the tools.Registry's `__`-delimited tool
// namespace. Grounded on the teacher's internal/mcp/manager*.go connect/
// discover/health-loop idiom, trimmed of its managed-mode (per-user,
// per-agent, database-backed permission filtering) surface — this
// registry serves the single statically-configured server list from
// spec.md's Remote Tool Registry, nothing more.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/tools"
)

const (
	healthCheckInterval  = 30 * time.Second
	initialBackoff       = 2 * time.Second
	maxBackoff           = 60 * time.Second
	maxReconnectAttempts = 10
)

// serverConn tracks one connected MCP server and its discovered tools.
type serverConn struct {
	name       string
	transport  string
	client     *mcpclient.Client
	connected  atomic.Bool
	timeoutSec int
	cancel     context.CancelFunc
	toolSpecs  []tools.ToolSpec

	mu             sync.Mutex
	reconnAttempts int
	lastErr        string
}

// Manager implements tools.RemoteRegistry over a static list of MCP
// servers. Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	servers map[string]*serverConn
}

// NewManager builds an empty manager; call Start to connect.
func NewManager() *Manager {
	return &Manager{servers: make(map[string]*serverConn)}
}

// Start connects every enabled server in cfgs. Connection failures are
// logged and skipped — one broken server must not disable the others.
// Start connects every enabled server concurrently — each connect
// handshake (transport dial, Initialize, ListTools) is independent and
// has its own network-bound latency, so servers are dialed in parallel
// rather than one slow server stalling the rest of the registry's
// startup.
func (m *Manager) Start(ctx context.Context, cfgs []config.MCPServerConfig) {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range cfgs {
		if !c.Enabled {
			continue
		}
		c := c
		g.Go(func() error {
			if err := m.connect(gctx, c); err != nil {
				slog.Warn("mcp: server connect failed", "server", c.Name, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Stop closes every connection and clears the registry.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sc := range m.servers {
		if sc.cancel != nil {
			sc.cancel()
		}
		if sc.client != nil {
			_ = sc.client.Close()
		}
	}
	m.servers = make(map[string]*serverConn)
}

// Enabled reports whether any server was registered at Start; a server
// later marked disconnected by its health check still counts.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.servers) > 0
}

// List returns every discovered tool across connected servers, named
// "<server>__<tool>" to match the Registry's remote-namespace delimiter,
// where <server> is the configured tool_prefix (the server name when no
// prefix is set) and is also the key Execute resolves.
func (m *Manager) List() []tools.ToolSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var specs []tools.ToolSpec
	for _, sc := range m.servers {
		specs = append(specs, sc.toolSpecs...)
	}
	return specs
}

// Execute routes a reassembled tool call to its server.
func (m *Manager) Execute(ctx context.Context, server, tool string, args map[string]interface{}) *tools.Result {
	m.mu.RLock()
	sc, ok := m.servers[server]
	m.mu.RUnlock()
	if !ok {
		return tools.ErrorResult(fmt.Sprintf("mcp: unknown server %q", server))
	}
	if !sc.connected.Load() {
		return tools.ErrorResult(fmt.Sprintf("mcp: server %q is disconnected", server))
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(sc.timeoutSec)*time.Second)
	defer cancel()

	req := mcpgo.CallToolRequest{}
	req.Params.Name = tool
	req.Params.Arguments = args

	res, err := sc.client.CallTool(callCtx, req)
	if err != nil {
		return tools.ErrorResult(err.Error())
	}
	return tools.NewResult(renderToolResult(res))
}

func renderToolResult(res *mcpgo.CallToolResult) string {
	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(mcpgo.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func (m *Manager) connect(ctx context.Context, c config.MCPServerConfig) error {
	client, err := createClient(c)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if c.Transport != "stdio" {
		if err := client.Start(ctx); err != nil {
			_ = client.Close()
			return fmt.Errorf("start transport: %w", err)
		}
	}

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{Name: "gearclaw", Version: "1.0.0"}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return fmt.Errorf("initialize: %w", err)
	}

	listed, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return fmt.Errorf("list tools: %w", err)
	}

	timeout := c.TimeoutSec
	if timeout <= 0 {
		timeout = 60
	}

	sc := &serverConn{name: c.Name, transport: c.Transport, client: client, timeoutSec: timeout}
	sc.connected.Store(true)

	prefix := c.ToolPrefix
	if prefix == "" {
		prefix = c.Name
	}
	for _, t := range listed.Tools {
		sc.toolSpecs = append(sc.toolSpecs, tools.ToolSpec{
			Name:              prefix + "__" + t.Name,
			Description:       t.Description,
			RequiresArguments: len(t.InputSchema.Properties) > 0,
			Parameters:        map[string]interface{}{"type": "object", "properties": t.InputSchema.Properties, "required": t.InputSchema.Required},
		})
	}

	hctx, hcancel := context.WithCancel(context.Background())
	sc.cancel = hcancel
	go m.healthLoop(hctx, sc)

	m.mu.Lock()
	m.servers[prefix] = sc
	m.mu.Unlock()

	slog.Info("mcp: server connected", "server", c.Name, "transport", c.Transport, "tools", len(sc.toolSpecs))
	return nil
}

func createClient(c config.MCPServerConfig) (*mcpclient.Client, error) {
	switch c.Transport {
	case "stdio":
		envSlice := make([]string, 0, len(c.Env))
		for k, v := range c.Env {
			envSlice = append(envSlice, k+"="+v)
		}
		return mcpclient.NewStdioMCPClient(c.Command, envSlice, c.Args...)
	case "sse":
		var opts []transport.ClientOption
		if len(c.Headers) > 0 {
			opts = append(opts, mcpclient.WithHeaders(c.Headers))
		}
		return mcpclient.NewSSEMCPClient(c.URL, opts...)
	case "streamable-http":
		var opts []transport.StreamableHTTPCOption
		if len(c.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(c.Headers))
		}
		return mcpclient.NewStreamableHttpClient(c.URL, opts...)
	default:
		return nil, fmt.Errorf("unsupported transport: %q", c.Transport)
	}
}

// healthLoop periodically pings the server, attempting reconnection with
// backoff on failure; servers that don't implement "ping" count as healthy.
func (m *Manager) healthLoop(ctx context.Context, sc *serverConn) {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sc.client.Ping(ctx); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "method not found") {
					sc.connected.Store(true)
					continue
				}
				sc.connected.Store(false)
				sc.mu.Lock()
				sc.lastErr = err.Error()
				sc.mu.Unlock()
				slog.Warn("mcp: health check failed", "server", sc.name, "error", err)
				m.tryReconnect(ctx, sc)
				continue
			}
			sc.connected.Store(true)
			sc.mu.Lock()
			sc.reconnAttempts = 0
			sc.lastErr = ""
			sc.mu.Unlock()
		}
	}
}

func (m *Manager) tryReconnect(ctx context.Context, sc *serverConn) {
	sc.mu.Lock()
	if sc.reconnAttempts >= maxReconnectAttempts {
		sc.mu.Unlock()
		slog.Error("mcp: reconnect attempts exhausted", "server", sc.name)
		return
	}
	sc.reconnAttempts++
	attempt := sc.reconnAttempts
	sc.mu.Unlock()

	backoff := initialBackoff * time.Duration(1<<(attempt-1))
	if backoff > maxBackoff {
		backoff = maxBackoff
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(backoff):
	}

	if err := sc.client.Ping(ctx); err == nil {
		sc.connected.Store(true)
		sc.mu.Lock()
		sc.reconnAttempts = 0
		sc.mu.Unlock()
		slog.Info("mcp: server reconnected", "server", sc.name)
	}
}

// ServerStatus reports the connection status of an MCP server.
type ServerStatus struct {
	Name      string
	Transport string
	Connected bool
	ToolCount int
	Error     string
}

// Status returns a snapshot of every connected server, for CLI/diagnostic output.
func (m *Manager) Status() []ServerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServerStatus, 0, len(m.servers))
	for _, sc := range m.servers {
		sc.mu.Lock()
		out = append(out, ServerStatus{
			Name: sc.name, Transport: sc.transport, Connected: sc.connected.Load(),
			ToolCount: len(sc.toolSpecs), Error: sc.lastErr,
		})
		sc.mu.Unlock()
	}
	return out
}
