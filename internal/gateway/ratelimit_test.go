package gateway

import "testing"

func TestRateLimiter_DisabledWhenRPMNonPositive(t *testing.T) {
	rl := NewRateLimiter(0, 0)
	if rl.Enabled() {
		t.Error("expected rpm<=0 to disable the limiter")
	}
	for i := 0; i < 1000; i++ {
		if !rl.Allow("conn-1") {
			t.Fatal("disabled limiter must always allow")
		}
	}
}

func TestRateLimiter_EnforcesRPM(t *testing.T) {
	rl := NewRateLimiter(3, 0)
	if !rl.Enabled() {
		t.Fatal("expected rpm>0 to enable the limiter")
	}
	for i := 0; i < 3; i++ {
		if !rl.Allow("conn-1") {
			t.Fatalf("expected request %d within rpm budget to be allowed", i)
		}
	}
	if rl.Allow("conn-1") {
		t.Error("expected the 4th request within the window to be blocked")
	}
}

func TestRateLimiter_PerKeyIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	if !rl.Allow("conn-1") {
		t.Fatal("expected first request for conn-1 to be allowed")
	}
	if !rl.Allow("conn-2") {
		t.Error("expected conn-2's budget to be independent of conn-1's")
	}
}
