package channels

import "testing"

func TestWebhookRateLimiter_AllowsUnderLimit(t *testing.T) {
	rl := NewWebhookRateLimiter()
	for i := 0; i < rateLimitMaxHits; i++ {
		if !rl.Allow("sender-1") {
			t.Fatalf("expected hit %d to be allowed", i)
		}
	}
}

func TestWebhookRateLimiter_BlocksOverLimit(t *testing.T) {
	rl := NewWebhookRateLimiter()
	for i := 0; i < rateLimitMaxHits; i++ {
		rl.Allow("sender-1")
	}
	if rl.Allow("sender-1") {
		t.Error("expected the hit beyond rateLimitMaxHits to be blocked")
	}
}

func TestWebhookRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := NewWebhookRateLimiter()
	for i := 0; i < rateLimitMaxHits; i++ {
		rl.Allow("sender-1")
	}
	if !rl.Allow("sender-2") {
		t.Error("expected a different key to have its own independent budget")
	}
}

func TestWebhookRateLimiter_EvictsUnderPressure(t *testing.T) {
	rl := NewWebhookRateLimiter()
	for i := 0; i < maxTrackedKeys+10; i++ {
		rl.Allow(string(rune(i)))
	}
	if len(rl.entries) > maxTrackedKeys {
		t.Errorf("tracked key count = %d, want <= %d", len(rl.entries), maxTrackedKeys)
	}
}
