package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCapitalize(t *testing.T) {
	if got := capitalize("freeze"); got != "Freeze" {
		t.Fatalf("expected Freeze, got %q", got)
	}

	if got := capitalize(""); got != "" {
		t.Fatalf("expected empty string unchanged, got %q", got)
	}
}

func TestGetReportsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))
	defer server.Close()

	baseURL = server.URL
	timeout = time.Second

	if err := get("/api/v1/transfers/unknown"); err == nil {
		t.Fatalf("expected error for 404 response")
	}
}

func TestPostSucceedsOnAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("expected POST, got %s", r.Method)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"state":"pending"}`))
	}))
	defer server.Close()

	baseURL = server.URL
	timeout = time.Second

	if err := post("/api/v1/transfers", map[string]any{"amount": "10"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
