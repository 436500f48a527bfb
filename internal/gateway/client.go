package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gearclaw/gearclaw/pkg/protocol"
)

const (
	maxFrameBytes  = 1 << 20 // 1 MiB (spec.md §4.7)
	sendBufferSize = 64
	writeWait      = 10 * time.Second
)

// Client is one gateway connection: a read loop dispatching request
// frames to the method router, and a write pump serializing both
// responses and broadcast events onto the same websocket connection
// (spec.md §4.7 "Per-connection loop").
type Client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan protocol.Frame
	closed chan struct{}
}

// NewClient wraps an accepted websocket connection. id is a server-
// assigned opaque identifier, surfaced in logs only (spec.md §4.7
// "Connection id").
func NewClient(conn *websocket.Conn, server *Server) *Client {
	conn.SetReadLimit(maxFrameBytes)
	return &Client{
		id:     uuid.NewString(),
		conn:   conn,
		server: server,
		send:   make(chan protocol.Frame, sendBufferSize),
		closed: make(chan struct{}),
	}
}

// SendEvent enqueues an event frame for delivery. Non-blocking: a client
// too slow to drain its buffer drops the event rather than stalling the
// broadcaster (spec.md §4.6 "lagging subscribers skip dropped messages",
// applied here to gateway event fan-out as well).
func (c *Client) SendEvent(event protocol.Frame) {
	select {
	case c.send <- event:
	default:
		slog.Warn("gateway: client send buffer full, dropping event", "client", c.id)
	}
}

// Run drives both the write pump and the blocking read loop until the
// connection closes or ctx is done.
func (c *Client) Run(ctx context.Context) {
	go c.writePump()

	hello := c.server.helloFrame()
	c.SendEvent(hello)

	for {
		var frame protocol.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		if frame.Type != protocol.FrameRequest {
			continue
		}

		req, ok := decodeRequestData(frame.Data)
		if !ok {
			continue
		}

		resp := c.server.router.Dispatch(ctx, c, req)
		c.SendEvent(resp)
	}
}

func (c *Client) writePump() {
	defer close(c.closed)
	for frame := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(frame); err != nil {
			return
		}
	}
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.conn.Close()
}

// decodeRequestData re-decodes a generically-unmarshaled frame payload
// (map[string]interface{}, since Frame.Data is interface{}) into a typed
// RequestData.
func decodeRequestData(raw interface{}) (protocol.RequestData, bool) {
	m, ok := raw.(map[string]interface{})
	if !ok {
		return protocol.RequestData{}, false
	}
	req := protocol.RequestData{}
	if id, ok := m["id"].(string); ok {
		req.ID = id
	}
	if method, ok := m["method"].(string); ok {
		req.Method = method
	}
	if deviceID, ok := m["device_id"].(string); ok {
		req.DeviceID = deviceID
	}
	if sig, ok := m["signature"].(string); ok {
		req.Signature = sig
	}
	req.Params = m["params"]
	return req, true
}
