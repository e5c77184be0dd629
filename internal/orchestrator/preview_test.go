package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"imgto3d/internal/api"
)

func imageRefs(n int) []api.ImageRef {
	refs := make([]api.ImageRef, n)
	for i := range refs {
		refs[i] = api.ImageRef{URL: "uploads/img.png", Filename: "img.png"}
	}
	return refs
}

func TestPreviewRejectionSkipsCheckout(t *testing.T) {
	checkoutCalls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/preview", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":       false,
			"warnings": []string{"blurry image 2"},
		})
	})
	mux.HandleFunc("POST /billing/checkout-session", func(w http.ResponseWriter, r *http.Request) {
		checkoutCalls++
		json.NewEncoder(w).Encode(map[string]any{"session_url": "https://pay.example.com/s1", "session_id": "s1"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := api.NewClient(api.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	gate := NewPreviewGate(client, nil)

	outcome, err := gate.Run(context.Background(), imageRefs(4), "", "")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if outcome.OK {
		t.Fatalf("outcome.OK = true, want false")
	}
	if len(outcome.Warnings) != 1 || outcome.Warnings[0] != "blurry image 2" {
		t.Fatalf("warnings = %v, want [blurry image 2]", outcome.Warnings)
	}
	if outcome.CheckoutURL != "" || outcome.SessionID != "" {
		t.Fatalf("rejected preview must not carry a checkout session")
	}
	if checkoutCalls != 0 {
		t.Fatalf("checkout calls = %d, want 0", checkoutCalls)
	}
}

func TestPreviewAcceptedCreatesCheckout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /jobs/preview", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("preview should be unauthenticated, got Authorization %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"ok":               true,
			"preview_token":    "pv-123",
			"estimate_credits": 4.5,
			"estimate_minutes": 12,
		})
	})
	mux.HandleFunc("POST /billing/checkout-session", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode checkout body: %v", err)
			return
		}
		if body["preview_token"] != "pv-123" {
			t.Errorf("preview_token = %q, want pv-123", body["preview_token"])
		}
		if body["success_url"] != "https://app.example.com/done" {
			t.Errorf("success_url = %q", body["success_url"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"session_url": "https://pay.example.com/cs_1",
			"session_id":  "cs_1",
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := api.NewClient(api.Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	gate := NewPreviewGate(client, nil)

	outcome, err := gate.Run(context.Background(), imageRefs(3), "https://app.example.com/done", "https://app.example.com/cancel")
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !outcome.OK {
		t.Fatalf("outcome.OK = false, want true")
	}
	if outcome.CheckoutURL != "https://pay.example.com/cs_1" || outcome.SessionID != "cs_1" {
		t.Fatalf("checkout = %q / %q", outcome.CheckoutURL, outcome.SessionID)
	}
	if outcome.EstimateCredits != 4.5 || outcome.EstimateMinutes != 12 {
		t.Fatalf("estimate = %v credits / %d minutes", outcome.EstimateCredits, outcome.EstimateMinutes)
	}
}

func TestPreviewEnforcesStudioBounds(t *testing.T) {
	client, err := api.NewClient(api.Options{BaseURL: "http://localhost:1"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	gate := NewPreviewGate(client, nil)

	for _, n := range []int{0, 1, 2, 7, 12} {
		if _, err := gate.Run(context.Background(), imageRefs(n), "", ""); err == nil {
			t.Fatalf("n=%d: expected group bounds error", n)
		}
	}
}
