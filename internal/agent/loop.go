// Package agent implements the bounded multi-turn orchestrator
// (spec.md §4.5): compose tool specs and system prompt, drive the LLM
// streaming client, dispatch resulting tool calls, and repeat until the
// model stops calling tools or the iteration cap is reached.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gearclaw/gearclaw/internal/config"
	"github.com/gearclaw/gearclaw/internal/memory"
	"github.com/gearclaw/gearclaw/internal/providers"
	"github.com/gearclaw/gearclaw/internal/session"
	"github.com/gearclaw/gearclaw/internal/skills"
	"github.com/gearclaw/gearclaw/internal/tools"
)

const maxIterationsHardCap = 15

var tracer = otel.Tracer("gearclaw/agent")

// ChunkSink receives streamed text deltas as they arrive, in addition to
// the final accumulated response Run returns.
type ChunkSink func(text string)

// Orchestrator runs the think→act→observe loop for one provider/registry
// pair, shared across all sessions it is invoked for.
type Orchestrator struct {
	provider providers.Provider
	registry *tools.Registry
	execTool *tools.ExecTool
	sessions *session.Store
	mem      *memory.Index
	cfg      config.AgentConfig
	memCfg   config.MemoryConfig
	catalog  *skills.CachedCatalog
}

// New wires an Orchestrator from its collaborators. execTool may be nil
// if "exec" isn't registered in registry's builtins; when non-nil, exec
// calls are special-cased through ExecuteWithCwd so session.Cwd tracks
// `cd` across turns (spec.md §4.2 "Cd handling"). The skillsDir directory
// itself is watched, so the skill catalog re-walks disk only after an
// entry directly under it changes; edits inside a skill's subdirectory
// are not seen until such a change.
func New(provider providers.Provider, registry *tools.Registry, execTool *tools.ExecTool,
	sessions *session.Store, mem *memory.Index, cfg config.AgentConfig, memCfg config.MemoryConfig, skillsDir string) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		registry: registry,
		execTool: execTool,
		sessions: sessions,
		mem:      mem,
		cfg:      cfg,
		memCfg:   memCfg,
		catalog:  skills.NewCachedCatalog(config.ExpandHome(skillsDir)),
	}
}

// Run executes one user turn against sessionID: loads or creates the
// session, appends the user message (if non-empty), then iterates the
// tool-calling loop until the model stops calling tools or the
// iteration cap is reached. Returns the final assistant text.
func (o *Orchestrator) Run(ctx context.Context, sessionID, userMessage string, onChunk ChunkSink) (string, error) {
	ctx, span := tracer.Start(ctx, "agent.run", trace.WithAttributes(
		attribute.String("session.id", sessionID),
	))
	defer span.End()

	workspace := config.ExpandHome(o.cfg.Workspace)
	sess, err := o.sessions.GetOrCreate(sessionID, workspace)
	if err != nil {
		return "", fmt.Errorf("agent: load session: %w", err)
	}
	if sess.Cwd == "" {
		sess.Cwd = workspace
	}

	if userMessage != "" {
		sess.Messages = append(sess.Messages, providers.Message{Role: "user", Content: userMessage})
	}

	loopUserMessage := userMessage
	var lastText string

	maxIter := o.cfg.MaxToolIterations
	if maxIter <= 0 || maxIter > maxIterationsHardCap {
		maxIter = maxIterationsHardCap
	}

	for iter := 0; iter < maxIter; iter++ {
		turnCtx, turnSpan := tracer.Start(ctx, "agent.turn", trace.WithAttributes(
			attribute.Int("agent.iteration", iter),
		))

		systemPrompt := o.composeSystemPrompt(turnCtx, loopUserMessage)
		specs := o.registry.Specs()

		req := providers.ChatRequest{
			Messages:  append([]providers.Message{{Role: "system", Content: systemPrompt}}, sess.Messages...),
			Tools:     toolDefinitions(specs),
			Model:     o.cfg.Model,
			MaxTokens: o.cfg.MaxTokens,
		}

		resp, err := o.provider.ChatStream(turnCtx, req, func(chunk providers.StreamChunk) {
			if onChunk != nil && chunk.Content != "" {
				onChunk(chunk.Content)
			}
		})
		if err != nil {
			turnSpan.End()
			_ = o.sessions.Save(sess)
			return lastText, fmt.Errorf("agent: llm call failed: %w", err)
		}

		assistant := providers.Message{Role: "assistant"}
		if resp.Content != "" {
			assistant.Content = resp.Content
			lastText = resp.Content
		}
		if len(resp.ToolCalls) > 0 {
			assistant.ToolCalls = resp.ToolCalls
		}
		sess.Messages = append(sess.Messages, assistant)

		if len(resp.ToolCalls) == 0 {
			turnSpan.End()
			if err := o.sessions.Save(sess); err != nil {
				return lastText, fmt.Errorf("agent: save session: %w", err)
			}
			return lastText, nil
		}

		for _, call := range resp.ToolCalls {
			output, isError := o.dispatch(turnCtx, sess, call)
			content := output
			if isError {
				content = fmt.Sprintf("Error: %s", output)
			}
			sess.Messages = append(sess.Messages, providers.Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: call.ID,
			})
		}

		turnSpan.End()
		loopUserMessage = ""
	}

	if err := o.sessions.Save(sess); err != nil {
		return lastText, fmt.Errorf("agent: save session: %w", err)
	}
	return lastText, nil
}

// dispatch routes one reassembled tool call to the registry, special-
// casing "exec" so the session's cwd tracks `cd` across turns.
func (o *Orchestrator) dispatch(ctx context.Context, sess *session.Session, call providers.ToolCall) (output string, isError bool) {
	ctx, span := tracer.Start(ctx, "agent.tool_call", trace.WithAttributes(
		attribute.String("tool.name", call.Name),
	))
	defer span.End()

	args := decodeArguments(call.Arguments)

	if o.execTool != nil && call.Name == o.execTool.Name() {
		argv := buildArgv(args)
		result, newCwd := o.execTool.ExecuteWithCwd(ctx, argv, sess.Cwd)
		sess.Cwd = newCwd
		return result.Output, result.IsError
	}

	result := o.registry.Execute(ctx, call.Name, args)
	return result.Output, result.IsError
}

// composeSystemPrompt builds the configured prompt + skill catalog +
// memory "Relevant Context" block (spec.md §4.5 step 3). A memory-search
// failure is logged at warn and otherwise ignored for the turn (spec.md
// §7): the prompt is built without a context block rather than failing
// the turn.
func (o *Orchestrator) composeSystemPrompt(ctx context.Context, userMessage string) string {
	var sb strings.Builder
	sb.WriteString(o.cfg.SystemPrompt)

	if catalog := skills.Catalog(o.catalog.Load()); catalog != "" {
		sb.WriteString("\n\n")
		sb.WriteString(catalog)
	}

	if o.mem != nil && o.memCfg.Enabled && userMessage != "" {
		topK := o.memCfg.TopK
		if topK <= 0 {
			topK = 5
		}
		results, err := o.mem.Search(ctx, userMessage, topK)
		if err != nil {
			slog.Warn("agent: memory search failed, continuing without context", "error", err)
		} else if len(results) > 0 {
			sb.WriteString("\n\n")
			sb.WriteString(memory.RenderContext(results))
		}
	}

	return sb.String()
}

// decodeArguments parses a tool call's raw JSON arguments string into a
// map, tolerating empty/malformed input by returning an empty map
// (the tool's own Execute then reports missing required args).
func decodeArguments(raw string) map[string]interface{} {
	args := map[string]interface{}{}
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}

// buildArgv mirrors tools.buildArgv for the exec-tool fast path, since
// that helper is unexported and dispatch needs argv before calling
// ExecuteWithCwd directly (bypassing Registry.Execute's map-args signature).
func buildArgv(args map[string]interface{}) []string {
	command, _ := args["command"].(string)
	argv := []string{command}
	if raw, ok := args["args"].([]interface{}); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				argv = append(argv, s)
			}
		}
	}
	return argv
}

func toolDefinitions(specs []tools.ToolSpec) []providers.ToolDefinition {
	defs := make([]providers.ToolDefinition, 0, len(specs))
	for _, s := range specs {
		defs = append(defs, providers.ToolDefinition{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Parameters,
		})
	}
	return defs
}
