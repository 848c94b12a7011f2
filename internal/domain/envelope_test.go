package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		kind    EnvelopeKind
		wantErr bool
	}{
		{"Auth", `{"type":"auth","token":"abc"}`, KindAuth, false},
		{"Ping", `{"type":"ping"}`, KindPing, false},
		{"NewTweet", `{"type":"new_tweet","data":{"id":"1"}}`, KindNewTweet, false},
		{"Unknown kind", `{"type":"subscribe"}`, "", true},
		{"Missing kind", `{"token":"abc"}`, "", true},
		{"Not JSON", `{{{`, "", true},
		{"Empty", ``, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseEnvelope([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q, got kind %q", tc.raw, env.Type)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if env.Type != tc.kind {
				t.Errorf("Expected kind %q, got %q", tc.kind, env.Type)
			}
		})
	}
}

func TestParseEnvelope_AuthToken(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"type":"auth","token":"tok-123"}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if env.Token != "tok-123" {
		t.Errorf("Expected token 'tok-123', got %q", env.Token)
	}
}

func TestNewTweetEnvelope_WireShape(t *testing.T) {
	post := Post{
		ID:        "42",
		Author:    "alice",
		Content:   "hi",
		CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		UserID:    "u1",
	}

	raw := NewTweetEnvelope(post).Encode()

	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Envelope is not valid JSON: %v", err)
	}
	if string(decoded["type"]) != `"new_tweet"` {
		t.Errorf("Expected type new_tweet, got %s", decoded["type"])
	}

	var data Post
	if err := json.Unmarshal(decoded["data"], &data); err != nil {
		t.Fatalf("Data payload did not decode: %v", err)
	}
	if data.ID != "42" || data.Author != "alice" {
		t.Errorf("Unexpected post payload: %+v", data)
	}
}

func TestAuthSuccessEnvelope_WireShape(t *testing.T) {
	raw := AuthSuccessEnvelope(Identity{UserID: "u1", Username: "alice"}).Encode()

	want := `{"type":"auth_success","user":{"userId":"u1","username":"alice"}}`
	if string(raw) != want {
		t.Errorf("Expected %s, got %s", want, raw)
	}
}
