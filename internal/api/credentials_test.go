package api

import (
	"errors"
	"net/http"
	"testing"
)

func TestAuthorizePrefersAPIKey(t *testing.T) {
	creds := NewCredentials()
	creds.SetSessionToken("sess-token")
	creds.SetAPIKey("ak_live_123")

	req, err := http.NewRequest(http.MethodGet, "http://localhost/jobs/1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := creds.Authorize(req); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer ak_live_123" {
		t.Fatalf("Authorization = %q, want API key bearer", got)
	}
}

func TestAuthorizeSessionTokenFallback(t *testing.T) {
	creds := NewCredentials()
	creds.SetSessionToken("  sess-token  ")

	req, err := http.NewRequest(http.MethodGet, "http://localhost/jobs/1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := creds.Authorize(req); err != nil {
		t.Fatalf("Authorize returned error: %v", err)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer sess-token" {
		t.Fatalf("Authorization = %q, want trimmed session token", got)
	}
}

func TestAuthorizeWithoutCredentials(t *testing.T) {
	creds := NewCredentials()

	req, err := http.NewRequest(http.MethodGet, "http://localhost/jobs/1", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if err := creds.Authorize(req); !errors.Is(err, ErrNoCredentials) {
		t.Fatalf("Authorize error = %v, want ErrNoCredentials", err)
	}
	if got := req.Header.Get("Authorization"); got != "" {
		t.Fatalf("Authorization should stay unset, got %q", got)
	}
}

func TestClearEmptiesBothCredentials(t *testing.T) {
	creds := NewCredentials()
	creds.SetAPIKey("ak_live_123")
	creds.SetSessionToken("sess-token")
	if creds.Empty() {
		t.Fatalf("Empty() = true with credentials set")
	}

	creds.Clear()
	if !creds.Empty() {
		t.Fatalf("Empty() = false after Clear")
	}
}
