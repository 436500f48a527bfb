package mcp

import (
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

func TestRenderToolResult_ConcatenatesTextContent(t *testing.T) {
	res := &mcpgo.CallToolResult{
		Content: []mcpgo.Content{
			mcpgo.TextContent{Type: "text", Text: "hello "},
			mcpgo.TextContent{Type: "text", Text: "world"},
		},
	}
	got := renderToolResult(res)
	if got != "hello world" {
		t.Errorf("renderToolResult = %q, want %q", got, "hello world")
	}
}

func TestRenderToolResult_Empty(t *testing.T) {
	res := &mcpgo.CallToolResult{}
	if got := renderToolResult(res); got != "" {
		t.Errorf("renderToolResult of empty result = %q, want empty", got)
	}
}
