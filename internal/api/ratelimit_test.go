package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(0, 3)
	for i := range 3 {
		if !rl.allow("203.0.113.7") {
			t.Fatalf("request %d denied within burst", i+1)
		}
	}
	if rl.allow("203.0.113.7") {
		t.Error("request beyond burst allowed")
	}
}

func TestRateLimiterIsolatesIPs(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(0, 1)
	if !rl.allow("203.0.113.7") {
		t.Fatal("first request from A denied")
	}
	if rl.allow("203.0.113.7") {
		t.Error("second request from A allowed past burst")
	}
	if !rl.allow("203.0.113.8") {
		t.Error("request from B denied by A's exhaustion")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{
			name:       "remote addr with port",
			remoteAddr: "10.0.0.1:52801",
			want:       "10.0.0.1",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.168.1.7",
			want:       "192.168.1.7",
		},
		{
			name:       "proxy headers ignored when untrusted",
			remoteAddr: "10.0.0.1:52801",
			realIP:     "9.9.9.9",
			forwarded:  "8.8.8.8",
			want:       "10.0.0.1",
		},
		{
			name:       "x-real-ip wins when trusted",
			remoteAddr: "10.0.0.1:52801",
			realIP:     "9.9.9.9",
			forwarded:  "8.8.8.8",
			trustProxy: true,
			want:       "9.9.9.9",
		},
		{
			name:       "x-forwarded-for first hop",
			remoteAddr: "10.0.0.1:52801",
			forwarded:  "8.8.8.8, 7.7.7.7",
			trustProxy: true,
			want:       "8.8.8.8",
		},
		{
			name:       "invalid x-real-ip falls through",
			remoteAddr: "10.0.0.1:52801",
			realIP:     "not-an-ip",
			forwarded:  "8.8.8.8",
			trustProxy: true,
			want:       "8.8.8.8",
		},
		{
			name:       "all headers invalid falls back to remote",
			remoteAddr: "10.0.0.1:52801",
			realIP:     "spoofed",
			forwarded:  "also spoofed, 7.7.7.7",
			trustProxy: true,
			want:       "10.0.0.1",
		},
		{
			name:       "ipv6 real ip",
			remoteAddr: "10.0.0.1:52801",
			realIP:     "2001:db8::1",
			trustProxy: true,
			want:       "2001:db8::1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(req, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitMiddlewareAnswers429(t *testing.T) {
	t.Parallel()

	rl := newRateLimiter(0, 1)
	handler := rateLimitMiddleware(rl, false, discardLogger())(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
	req.RemoteAddr = "203.0.113.7:41000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Errorf("Retry-After = %q, want 1", rec.Header().Get("Retry-After"))
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != "rate_limited" {
		t.Errorf("error code = %q, want rate_limited", body.Error)
	}
}
