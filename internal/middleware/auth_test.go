package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// stubVerifier accepts exactly one token
type stubVerifier struct {
	token    string
	identity domain.Identity
}

func (v *stubVerifier) Verify(token string) (*domain.Identity, error) {
	if token != v.token {
		return nil, errors.New("invalid token")
	}
	id := v.identity
	return &id, nil
}

func TestRequireAuth(t *testing.T) {
	verifier := &stubVerifier{
		token:    "good-token",
		identity: domain.Identity{UserID: "u1", Username: "alice"},
	}

	var seen domain.Identity
	handler := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("Expected identity in request context")
		}
		seen = identity
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"Valid bearer token", "Bearer good-token", http.StatusOK},
		{"Invalid token", "Bearer bad-token", http.StatusUnauthorized},
		{"Missing header", "", http.StatusUnauthorized},
		{"Wrong scheme", "Basic good-token", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Result().StatusCode != tc.status {
				t.Errorf("Expected status %d, got %d", tc.status, w.Result().StatusCode)
			}
		})
	}

	if seen.Username != "alice" {
		t.Errorf("Expected identity alice, got %q", seen.Username)
	}
}

func TestIdentityFrom_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	if _, ok := IdentityFrom(req.Context()); ok {
		t.Error("Expected no identity in a bare context")
	}
}
