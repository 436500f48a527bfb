package protocol

// Event kinds pushed from server to client (spec.md §3 "Gateway Frame",
// §4.7 "Event bus").
const (
	EventAgent          = "agent"
	EventChat           = "chat"
	EventChannelMessage = "channel.message"
	EventShutdown       = "shutdown"

	// EventCacheInvalidate is internal — never forwarded to WS clients.
	EventCacheInvalidate = "cache.invalidate"
)

// Agent event subtypes (in payload.type).
const (
	AgentEventRunStarted   = "run.started"
	AgentEventRunCompleted = "run.completed"
	AgentEventRunFailed    = "run.failed"
	AgentEventRunRetrying  = "run.retrying"
	AgentEventToolCall     = "tool.call"
	AgentEventToolResult   = "tool.result"
)

// Chat event subtypes (in payload.type).
const (
	ChatEventChunk    = "chunk"
	ChatEventMessage  = "message"
	ChatEventThinking = "thinking"
)
