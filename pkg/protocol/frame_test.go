package protocol

import (
	"encoding/json"
	"testing"
)

func TestNewResponse_RoundTrip(t *testing.T) {
	f := NewResponse("req-1", map[string]string{"hello": "world"})
	if f.Type != FrameResponse {
		t.Fatalf("expected type %q, got %q", FrameResponse, f.Type)
	}

	raw, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Frame
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Type != FrameResponse {
		t.Errorf("round-tripped type = %q, want %q", decoded.Type, FrameResponse)
	}

	data, ok := decoded.Data.(map[string]interface{})
	if !ok {
		t.Fatalf("decoded.Data is %T, want map[string]interface{}", decoded.Data)
	}
	if data["id"] != "req-1" {
		t.Errorf("id = %v, want req-1", data["id"])
	}
	if data["ok"] != true {
		t.Errorf("ok = %v, want true", data["ok"])
	}
}

func TestNewErrorResponse(t *testing.T) {
	f := NewErrorResponse("req-2", ErrNotFound, "session not found")
	resp, ok := f.Data.(ResponseData)
	if !ok {
		t.Fatalf("f.Data is %T, want ResponseData", f.Data)
	}
	if resp.OK {
		t.Error("expected OK=false for an error response")
	}
	if resp.Error == nil {
		t.Fatal("expected non-nil Error")
	}
	if resp.Error.Code != ErrNotFound {
		t.Errorf("error code = %q, want %q", resp.Error.Code, ErrNotFound)
	}
}

func TestNewEvent(t *testing.T) {
	f := NewEvent("chat", map[string]int{"n": 1})
	if f.Type != FrameEvent {
		t.Fatalf("expected type %q, got %q", FrameEvent, f.Type)
	}
	ev, ok := f.Data.(EventData)
	if !ok {
		t.Fatalf("f.Data is %T, want EventData", f.Data)
	}
	if ev.Kind != "chat" {
		t.Errorf("kind = %q, want chat", ev.Kind)
	}
}

func TestRequestData_UnmarshalFromWire(t *testing.T) {
	raw := `{"type":"req","data":{"id":"abc","method":"send","params":{"text":"hi"}}}`

	var f Frame
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	if f.Type != FrameRequest {
		t.Fatalf("type = %q, want %q", f.Type, FrameRequest)
	}

	// Frame.Data decodes generically; re-marshal/unmarshal into RequestData
	// the way a router dispatching on method would.
	body, err := json.Marshal(f.Data)
	if err != nil {
		t.Fatalf("re-marshal data: %v", err)
	}
	var req RequestData
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("unmarshal RequestData: %v", err)
	}
	if req.ID != "abc" || req.Method != "send" {
		t.Errorf("req = %+v, want id=abc method=send", req)
	}
}
