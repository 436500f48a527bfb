package channels

import (
	"strings"
	"testing"
)

func TestTruncate_ShortStringUnchanged(t *testing.T) {
	s := "hello"
	if got := Truncate(s, 100); got != s {
		t.Errorf("Truncate(%q, 100) = %q, want unchanged", s, got)
	}
}

func TestTruncate_LongASCIIStringGetsEllipsis(t *testing.T) {
	s := strings.Repeat("a", 50)
	got := Truncate(s, 10)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("Truncate result %q should end with ellipsis", got)
	}
	if len(got) > 13 { // 10 display columns + "..." worst case
		t.Errorf("Truncate result %q is too long", got)
	}
}

func TestTruncate_CJKUsesDisplayWidth(t *testing.T) {
	// Each CJK character is 2 display columns wide; byte-length truncation
	// would cut mid-rune, display-width truncation should not.
	s := strings.Repeat("字", 20)
	got := Truncate(s, 10)
	if !strings.HasSuffix(got, "...") {
		t.Errorf("expected truncated CJK string to end with ellipsis, got %q", got)
	}
	for _, r := range got {
		if r == 0xFFFD {
			t.Errorf("Truncate produced a replacement rune, string was cut mid-codepoint: %q", got)
		}
	}
}

func TestBaseChannel_ResolveTarget(t *testing.T) {
	bc := &BaseChannel{}
	got, err := bc.ResolveTarget("user-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "user-123" {
		t.Errorf("ResolveTarget = %q, want passthrough of input", got)
	}

	if _, err := bc.ResolveTarget(""); err == nil {
		t.Error("expected empty identifier to be rejected")
	}
}
