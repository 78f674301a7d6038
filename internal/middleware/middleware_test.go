package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/channelactions-tgbot-go/internal/config"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRouterLiveness(t *testing.T) {
	cfg := &config.Config{}
	cfg.Monitoring.Metrics.Enabled = true
	cfg.Monitoring.Metrics.Path = "/metrics"
	router := NewRouter(cfg)

	tests := []struct {
		path string
		want int
		body string
	}{
		{path: "/", want: http.StatusOK, body: LivenessText},
		{path: "/health", want: http.StatusOK, body: "OK"},
		{path: "/metrics", want: http.StatusOK},
		{path: "/nope", want: http.StatusNotFound},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.path, rec.Code, tt.want)
		}
		if tt.body != "" && rec.Body.String() != tt.body {
			t.Errorf("%s: body = %q, want %q", tt.path, rec.Body.String(), tt.body)
		}
	}
}

func TestRouterWithoutMetrics(t *testing.T) {
	router := NewRouter(&config.Config{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when metrics are disabled", rec.Code)
	}
}

func TestRateLimiterBurst(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 2}
	rl := NewRateLimiter(cfg, NewMetrics(), testLogger())

	if !rl.Allow(1) || !rl.Allow(1) {
		t.Fatal("first two requests should pass")
	}
	if rl.Allow(1) {
		t.Fatal("third request should be limited")
	}
	if !rl.Allow(2) {
		t.Fatal("other users keep their own budget")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(&config.Config{}, NewMetrics(), testLogger())
	for i := 0; i < 100; i++ {
		if !rl.Allow(1) {
			t.Fatal("disabled limiter must allow everything")
		}
	}
}

func TestRateLimiterEvictsIdle(t *testing.T) {
	cfg := &config.Config{}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 1}
	rl := NewRateLimiter(cfg, NewMetrics(), testLogger())

	rl.Allow(1)
	rl.Allow(2)
	if n := rl.evictIdle(time.Now()); n != 0 {
		t.Fatalf("evicted %d fresh limiters", n)
	}
	if n := rl.evictIdle(time.Now().Add(2 * time.Hour)); n != 2 {
		t.Fatalf("evicted %d, want 2", n)
	}
}
