package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/util"

	"github.com/rs/zerolog"
)

func TestLimiterKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.RemoteAddr = "10.1.2.3:4567"

	if got := limiterKey(req); got != "ip:10.1.2.3" {
		t.Errorf("expected ip key, got %q", got)
	}

	ctx := context.WithValue(req.Context(), UserContextKey, int64(42))
	if got := limiterKey(req.WithContext(ctx)); got != "user:42" {
		t.Errorf("expected user key, got %q", got)
	}
}

// The limiter must run inside the auth chain so authenticated requests are
// bucketed per user, not per IP.
func TestLimiterKeyAfterAuth(t *testing.T) {
	const secret = "test-secret"

	var key string
	chain := AuthMiddleware(secret, zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = limiterKey(r)
		w.WriteHeader(http.StatusOK)
	}))

	token, err := util.GenerateJWT(42, "alice", util.TokenTypeAccess, secret, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	req.RemoteAddr = "10.1.2.3:4567"
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	chain.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if key != "user:42" {
		t.Errorf("expected per-user key after auth, got %q", key)
	}
}

func TestRateLimitDisabledWithoutRedis(t *testing.T) {
	mw := RateLimit(nil, 60, 10, zerolog.Nop())

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/files", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called || rec.Code != http.StatusOK {
		t.Errorf("expected pass-through without redis, got %d (called=%v)", rec.Code, called)
	}
}
