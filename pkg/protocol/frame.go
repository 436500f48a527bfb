// Package protocol defines the gateway's wire format: a single JSON frame
// per message, tagged request/response/event (spec.md §3 "Gateway Frame",
// §6 wire format).
package protocol

// ProtocolVersion is the only protocol version this server speaks.
const ProtocolVersion = 1

// FrameType tags the outer envelope.
type FrameType string

const (
	FrameRequest  FrameType = "req"
	FrameResponse FrameType = "res"
	FrameEvent    FrameType = "event"
)

// Frame is the outer envelope every connection exchanges: one JSON object
// per message with a type tag and an opaque payload.
type Frame struct {
	Type FrameType   `json:"type"`
	Data interface{} `json:"data"`
}

// RequestData is the payload of a FrameRequest.
type RequestData struct {
	ID        string          `json:"id"`
	Method    string          `json:"method"`
	Params    interface{}     `json:"params,omitempty"`
	Sequence  int64           `json:"sequence,omitempty"`
	DeviceID  string          `json:"device_id,omitempty"`
	Signature string          `json:"signature,omitempty"`
}

// ResponseData is the payload of a FrameResponse, correlated by ID to the
// request that produced it.
type ResponseData struct {
	ID      string      `json:"id"`
	OK      bool        `json:"ok"`
	Payload interface{} `json:"payload,omitempty"`
	Error   *ErrorData  `json:"error,omitempty"`
}

// ErrorData carries a closed-set error code plus a human message.
type ErrorData struct {
	Code         string      `json:"code"`
	Message      string      `json:"message"`
	Details      interface{} `json:"details,omitempty"`
	Retryable    bool        `json:"retryable,omitempty"`
	RetryAfterMs int64       `json:"retry_after_ms,omitempty"`
}

// Closed set of error codes (spec.md §6).
const (
	ErrInvalidRequest = "INVALID_REQUEST"
	ErrNotLinked      = "NOT_LINKED"
	ErrAgentTimeout   = "AGENT_TIMEOUT"
	ErrUnavailable    = "UNAVAILABLE"
	ErrUnauthorized   = "UNAUTHORIZED"
	ErrNotFound       = "NOT_FOUND"
	ErrInternal       = "INTERNAL_ERROR"
)

// EventData is the payload of a FrameEvent: a server push tagged by kind.
type EventData struct {
	Kind    string      `json:"kind"`
	Payload interface{} `json:"payload,omitempty"`
}

// NewResponse builds a successful response frame.
func NewResponse(id string, payload interface{}) Frame {
	return Frame{Type: FrameResponse, Data: ResponseData{ID: id, OK: true, Payload: payload}}
}

// NewErrorResponse builds a failed response frame.
func NewErrorResponse(id, code, message string) Frame {
	return Frame{Type: FrameResponse, Data: ResponseData{ID: id, OK: false, Error: &ErrorData{Code: code, Message: message}}}
}

// NewEvent builds an event frame of the given kind.
func NewEvent(kind string, payload interface{}) Frame {
	return Frame{Type: FrameEvent, Data: EventData{Kind: kind, Payload: payload}}
}

// HelloPayload is the payload of the handshake frame emitted immediately
// after a connection is accepted (spec.md §4.7 "Handshake").
type HelloPayload struct {
	Protocol     ProtocolRange `json:"protocol"`
	Presence     interface{}   `json:"presence"`
	Health       interface{}   `json:"health"`
	StateVersion StateVersion  `json:"state_version"`
	UptimeMs     int64         `json:"uptime_ms"`
	Limits       PolicyLimits  `json:"limits"`
}

// ProtocolRange is the min/max protocol version this server accepts.
type ProtocolRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// StateVersion tracks monotonic counters for in-memory state the client
// may want to diff against (presence, health).
type StateVersion struct {
	Presence int64 `json:"presence"`
	Health   int64 `json:"health"`
}

// PolicyLimits are the per-connection limits advertised at handshake.
type PolicyLimits struct {
	MaxPayloadBytes int `json:"max_payload_bytes"`
	MaxBufferedMsgs int `json:"max_buffered"`
	TickIntervalMs  int `json:"tick_interval_ms"`
}
