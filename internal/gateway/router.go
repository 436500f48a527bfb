package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gearclaw/gearclaw/internal/bus"
	"github.com/gearclaw/gearclaw/internal/session"
	"github.com/gearclaw/gearclaw/pkg/protocol"
)

// MethodRouter authorizes, validates, and routes request frames to the
// server's handlers (spec.md §4.7 "Method dispatch").
type MethodRouter struct {
	server *Server
}

// NewMethodRouter builds a router bound to server.
func NewMethodRouter(server *Server) *MethodRouter {
	return &MethodRouter{server: server}
}

// Dispatch authorizes, validates, and routes one request frame, always
// returning a response frame correlated by request id.
func (r *MethodRouter) Dispatch(ctx context.Context, client *Client, req protocol.RequestData) protocol.Frame {
	if req.ID == "" {
		return protocol.NewErrorResponse("", protocol.ErrInvalidRequest, "request id must be non-empty")
	}

	if !r.server.cfg.Gateway.AllowUnauthenticated {
		if req.Signature == "" || !r.server.tokens.Authorize(req.Signature) {
			return protocol.NewErrorResponse(req.ID, protocol.ErrUnauthorized, "missing or unknown token")
		}
	}

	if r.server.rateLimiter.Enabled() && !r.server.rateLimiter.Allow(client.id) {
		return protocol.NewErrorResponse(req.ID, protocol.ErrUnavailable, "rate limit exceeded")
	}

	switch req.Method {
	case protocol.MethodConnect:
		return protocol.NewResponse(req.ID, r.server.helloPayload())
	case protocol.MethodHealth:
		return protocol.NewResponse(req.ID, r.server.healthPayload())
	case protocol.MethodStatus:
		return protocol.NewResponse(req.ID, r.server.statusPayload())
	case protocol.MethodSend:
		return r.handleSend(ctx, req)
	case protocol.MethodAgent:
		return r.handleAgent(ctx, req)
	default:
		return protocol.NewErrorResponse(req.ID, protocol.ErrInternal, "Unknown method")
	}
}

type sendParams struct {
	Target  string `json:"target"`
	Content string `json:"content"`
}

func (r *MethodRouter) handleSend(ctx context.Context, req protocol.RequestData) protocol.Frame {
	params, err := decodeParams[sendParams](req.Params)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error())
	}

	platform, identifier, ok := strings.Cut(params.Target, ":")
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, `target must be "platform:identifier"`)
	}

	ch, ok := r.server.channels.GetChannel(platform)
	if !ok {
		return protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, fmt.Sprintf("unknown platform %q", platform))
	}

	chatID, err := ch.ResolveTarget(identifier)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error())
	}

	if err := ch.Send(ctx, bus.OutboundMessage{Channel: platform, ChatID: chatID, Content: params.Content}); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error())
	}

	return protocol.NewResponse(req.ID, map[string]bool{"sent": true})
}

type agentParams struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (r *MethodRouter) handleAgent(ctx context.Context, req protocol.RequestData) protocol.Frame {
	params, err := decodeParams[agentParams](req.Params)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error())
	}

	sessionID := req.DeviceID
	if sessionID == "" {
		sessionID = req.ID
	}
	if params.SessionID != "" {
		sessionID = params.SessionID
	}
	if err := session.ValidateID(sessionID); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, err.Error())
	}

	text, err := r.server.orchestrator.Run(ctx, sessionID, params.Message, nil)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.ErrAgentTimeout, err.Error())
	}

	return protocol.NewResponse(req.ID, map[string]string{"text": text})
}

func (s *Server) helloFrame() protocol.Frame {
	return protocol.Frame{Type: protocol.FrameResponse, Data: protocol.ResponseData{
		ID:      "hello",
		OK:      true,
		Payload: s.helloPayload(),
	}}
}

func (s *Server) helloPayload() protocol.HelloPayload {
	return protocol.HelloPayload{
		Protocol:     protocol.ProtocolRange{Min: protocol.ProtocolVersion, Max: protocol.ProtocolVersion},
		Presence:     s.presence.Snapshot(),
		Health:       s.healthPayload(),
		StateVersion: protocol.StateVersion{Presence: s.presence.Version(), Health: 0},
		UptimeMs:     time.Since(s.startedAt).Milliseconds(),
		Limits: protocol.PolicyLimits{
			MaxPayloadBytes: maxFrameBytes,
			MaxBufferedMsgs: sendBufferSize,
			TickIntervalMs:  int((30 * time.Second).Milliseconds()),
		},
	}
}

func (s *Server) healthPayload() map[string]interface{} {
	return map[string]interface{}{
		"status":          "ok",
		"version":         protocol.ProtocolVersion,
		"uptime_ms":       time.Since(s.startedAt).Milliseconds(),
		"active_sessions": s.activeSessionCount(),
	}
}

func (s *Server) statusPayload() map[string]interface{} {
	s.mu.RLock()
	connections := len(s.clients)
	s.mu.RUnlock()
	return map[string]interface{}{
		"uptime_ms":   time.Since(s.startedAt).Milliseconds(),
		"connections": connections,
	}
}

func (s *Server) activeSessionCount() int {
	ids, err := s.sessions.List()
	if err != nil {
		return 0
	}
	return len(ids)
}
