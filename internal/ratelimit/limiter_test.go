package ratelimit

import (
	"net/http"
	"sync"
	"testing"
	"time"
)

// mockClock is a controllable clock for testing.
type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func newMockClock() *mockClock {
	return &mockClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestAllow_BurstThenRate(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 6, Burst: 2, Clock: clock})
	defer limiter.Close()

	ip := "203.0.113.7"

	// Burst is available immediately
	for i := 0; i < 2; i++ {
		if result := limiter.Allow(ip); !result.Allowed {
			t.Fatalf("request %d should be allowed, got blocked: %s", i+1, result.Reason)
		}
	}

	result := limiter.Allow(ip)
	if result.Allowed {
		t.Fatal("third request should be blocked")
	}
	if result.Reason != "refresh_rate" {
		t.Errorf("Expected reason 'refresh_rate', got '%s'", result.Reason)
	}
	if result.RetryAfter <= 0 || result.RetryAfter > 10*time.Second {
		t.Errorf("RetryAfter = %v, want (0, 10s]", result.RetryAfter)
	}

	// One token refills every ten seconds
	clock.Advance(10 * time.Second)
	if result := limiter.Allow(ip); !result.Allowed {
		t.Fatalf("request after refill should be allowed, got blocked: %s", result.Reason)
	}
	if result := limiter.Allow(ip); result.Allowed {
		t.Fatal("request right after refill should be blocked")
	}
}

func TestAllow_DeniedDoesNotConsume(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 6, Burst: 1, Clock: clock})
	defer limiter.Close()

	if !limiter.Allow("a").Allowed {
		t.Fatal("first request should be allowed")
	}
	for i := 0; i < 5; i++ {
		if limiter.Allow("a").Allowed {
			t.Fatalf("request %d should be blocked", i+2)
		}
	}

	clock.Advance(10 * time.Second)
	if result := limiter.Allow("a"); !result.Allowed {
		t.Fatalf("denied requests must not push back the refill, got blocked: %s", result.Reason)
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 1, Burst: 1, Clock: clock})
	defer limiter.Close()

	if !limiter.Allow("198.51.100.1").Allowed {
		t.Fatal("first key should be allowed")
	}
	if !limiter.Allow("198.51.100.2").Allowed {
		t.Fatal("second key should be allowed")
	}
	if limiter.Allow("198.51.100.1").Allowed {
		t.Fatal("first key should now be blocked")
	}
}

func TestAllow_KeyNormalization(t *testing.T) {
	limiter := New(&Config{PerMinute: 1, Burst: 1, Clock: newMockClock()})
	defer limiter.Close()

	limiter.Allow("Court-1:ABC")
	if limiter.Allow("  court-1:abc ").Allowed {
		t.Fatal("keys differing only in case and whitespace should share a bucket")
	}
}

func TestCleanupDropsIdleKeys(t *testing.T) {
	clock := newMockClock()
	limiter := New(&Config{PerMinute: 6, Burst: 2, IdleTTL: time.Minute, Clock: clock})
	defer limiter.Close()

	limiter.Allow("old")
	clock.Advance(2 * time.Minute)
	limiter.Allow("fresh")

	limiter.cleanup()

	if got := limiter.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.PerMinute != 6 {
		t.Errorf("PerMinute = %d, want 6", cfg.PerMinute)
	}
	if cfg.Burst != 2 {
		t.Errorf("Burst = %d, want 2", cfg.Burst)
	}
	if cfg.IdleTTL != 10*time.Minute {
		t.Errorf("IdleTTL = %v, want 10m", cfg.IdleTTL)
	}
}

func TestNew_NilConfig(t *testing.T) {
	limiter := New(nil)
	defer limiter.Close()

	if limiter.config == nil {
		t.Fatal("New(nil) should use default config")
	}
	if !limiter.Allow("1.2.3.4").Allowed {
		t.Fatal("first request should be allowed")
	}
}

func TestLimiter_Close(t *testing.T) {
	limiter := New(nil)

	// Trigger cleanup goroutine
	limiter.Allow("1.2.3.4")

	// Close should not hang
	done := make(chan struct{})
	go func() {
		limiter.Close()
		close(done)
	}()

	select {
	case <-done:
		// Success
	case <-time.After(1 * time.Second):
		t.Error("Close() should not hang")
	}
}

func TestConcurrentAccess(t *testing.T) {
	limiter := New(&Config{PerMinute: 60, Burst: 10, Clock: newMockClock()})
	defer limiter.Close()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				if limiter.Allow("192.168.1.1").Allowed {
					mu.Lock()
					allowed++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	// The clock never moves, so only the burst gets through
	if allowed != 10 {
		t.Fatalf("allowed = %d, want 10", allowed)
	}
}

func TestGetClientIP_TrustProxy(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		trustProxy bool
		expected   string
	}{
		{
			name:       "TrustProxy=true, XFF rightmost public IP",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.50", // Rightmost non-private
		},
		{
			name:       "TrustProxy=true, XFF all private",
			headers:    map[string]string{"X-Forwarded-For": "192.168.1.1, 10.0.0.1"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "10.0.0.1", // Last one when all private
		},
		{
			name:       "TrustProxy=true, X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "10.0.0.1:12345",
			trustProxy: true,
			expected:   "203.0.113.51",
		},
		{
			name:       "TrustProxy=false, ignores XFF",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.50"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100", // Uses RemoteAddr, ignores spoofed XFF
		},
		{
			name:       "TrustProxy=false, ignores X-Real-IP",
			headers:    map[string]string{"X-Real-IP": "203.0.113.51"},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
		{
			name:       "No headers, RemoteAddr only",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100:54321",
			trustProxy: true,
			expected:   "192.168.1.100",
		},
		{
			name:       "RemoteAddr without port",
			headers:    map[string]string{},
			remoteAddr: "192.168.1.100",
			trustProxy: false,
			expected:   "192.168.1.100",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			got := GetClientIP(r, tt.trustProxy)
			if got != tt.expected {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestGetClientIP_SpoofingPrevention(t *testing.T) {
	// Attacker sends fake X-Forwarded-For header
	r, _ := http.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "1.2.3.4") // Attacker-supplied
	r.RemoteAddr = "192.168.1.100:54321"       // Real connection

	// With TrustProxy=false, the fake header is ignored
	got := GetClientIP(r, false)
	if got != "192.168.1.100" {
		t.Errorf("Should ignore X-Forwarded-For when TrustProxy=false, got %q", got)
	}
}

func TestIsPrivateIP(t *testing.T) {
	tests := []struct {
		ip       string
		expected bool
	}{
		// IPv4 private ranges
		{"10.0.0.1", true},
		{"10.255.255.255", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"192.168.1.1", true},
		{"192.168.255.255", true},
		{"127.0.0.1", true},
		// IPv6 private/reserved
		{"::1", true},
		{"fc00::1", true},
		{"fe80::1", true}, // Link-local
		// IPv4-mapped IPv6 addresses (must match their IPv4 equivalents)
		{"::ffff:10.0.0.1", true},
		{"::ffff:192.168.1.1", true},
		{"::ffff:172.16.0.1", true},
		{"::ffff:127.0.0.1", true},
		{"::ffff:8.8.8.8", false},   // Public IP in IPv4-mapped format
		{"::ffff:1.1.1.1", false},   // Public IP in IPv4-mapped format
		// Public IPs
		{"203.0.113.50", false},
		{"8.8.8.8", false},
		{"1.1.1.1", false},
		{"2001:4860:4860::8888", false}, // Google DNS IPv6
		// Invalid
		{"invalid", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			got := isPrivateIP(tt.ip)
			if got != tt.expected {
				t.Errorf("isPrivateIP(%q) = %v, want %v", tt.ip, got, tt.expected)
			}
		})
	}
}

