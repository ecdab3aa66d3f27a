package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/sitetrack/internal/app/system/ratelimit"
)

func TestLimiter_Allow(t *testing.T) {
	l := ratelimit.New(3, time.Minute)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("fourth hit should be limited")
	}
	if !l.Allow("other") {
		t.Error("other keys are independent")
	}
	if got := l.Remaining("k"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}

	l.Reset("k")
	if got := l.Remaining("k"); got != 3 {
		t.Errorf("Remaining after reset = %d, want 3", got)
	}
}

func TestLimiter_WindowExpires(t *testing.T) {
	l := ratelimit.New(1, 20*time.Millisecond)
	defer l.Stop()

	if !l.Allow("k") {
		t.Fatal("first hit should be allowed")
	}
	if l.Allow("k") {
		t.Fatal("second hit should be limited")
	}
	time.Sleep(40 * time.Millisecond)
	if !l.Allow("k") {
		t.Error("hit after window should be allowed")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{"forwarded first hop", "10.0.0.1, 10.0.0.2", "", "1.2.3.4:5", "10.0.0.1"},
		{"real ip", "", " 10.0.0.3 ", "1.2.3.4:5", "10.0.0.3"},
		{"remote with port", "", "", "1.2.3.4:5", "1.2.3.4"},
		{"remote without port", "", "", "1.2.3.4", "1.2.3.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := ratelimit.ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoginLimiter(t *testing.T) {
	ll := ratelimit.NewLoginLimiterWithConfig(100, time.Minute, 2, time.Minute)
	defer ll.Stop()

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	for i := 0; i < 2; i++ {
		if ok, _ := ll.Check(r, "9000000001"); !ok {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	ok, msg := ll.Check(r, "9000000001")
	if ok || msg == "" {
		t.Fatal("third attempt for the same mobile should be limited with a message")
	}
	if ok, _ := ll.Check(r, "9000000002"); !ok {
		t.Error("a different mobile should be allowed")
	}

	ll.ResetMobile("9000000001")
	if ok, _ := ll.Check(r, "9000000001"); !ok {
		t.Error("reset mobile should be allowed again")
	}
}

func TestLoginLimiter_PerIP(t *testing.T) {
	ll := ratelimit.NewLoginLimiterWithConfig(1, time.Minute, 100, time.Minute)
	defer ll.Stop()

	r := httptest.NewRequest("POST", "/api/auth/login", nil)
	r.RemoteAddr = "10.1.1.1:1234"
	if ok, _ := ll.Check(r, "9000000001"); !ok {
		t.Fatal("first attempt should be allowed")
	}
	if ok, _ := ll.Check(r, "9000000002"); ok {
		t.Error("second attempt from the same IP should be limited")
	}
}
