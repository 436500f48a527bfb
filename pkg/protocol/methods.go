package protocol

// RPC method name constants (spec.md §4.7 "Method dispatch").
const (
	MethodConnect = "connect"
	MethodHealth  = "health"
	MethodStatus  = "status"
	MethodSend    = "send"
	MethodAgent   = "agent"
)
