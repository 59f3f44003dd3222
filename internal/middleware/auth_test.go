package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/util"

	"github.com/rs/zerolog"
)

func TestAuthMiddleware(t *testing.T) {
	const secret = "test-secret"
	mw := AuthMiddleware(secret, zerolog.Nop())

	var gotID int64
	var gotOK bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := mw(next)

	serve := func(authHeader string) *httptest.ResponseRecorder {
		gotID, gotOK = 0, false
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set("Authorization", authHeader)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	access, err := util.GenerateJWT(42, "alice", util.TokenTypeAccess, secret, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	refresh, err := util.GenerateJWT(42, "alice", util.TokenTypeRefresh, secret, time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	expired, err := util.GenerateJWT(42, "alice", util.TokenTypeAccess, secret, -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	t.Run("valid access token", func(t *testing.T) {
		rec := serve("Bearer " + access)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !gotOK || gotID != 42 {
			t.Errorf("expected user id 42 in context, got %d (ok=%v)", gotID, gotOK)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		if rec := serve(""); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		if rec := serve("Token " + access); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("refresh token rejected", func(t *testing.T) {
		if rec := serve("Bearer " + refresh); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		if rec := serve("Bearer " + expired); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("garbage token", func(t *testing.T) {
		if rec := serve("Bearer not-a-jwt"); rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
