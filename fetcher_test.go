package flagcore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherDownloadConfigSpecsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(downloadConfigSpecResponse{HasUpdates: true, Time: 42})
	}))
	defer server.Close()

	f := newHTTPFetcher(server.URL, "secret", nil)
	resp, updated, err := f.DownloadConfigSpecs(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated || resp == nil || resp.Time != 42 {
		t.Fatalf("expected updated response with time=42, got %+v updated=%v", resp, updated)
	}
}

func TestHTTPFetcherDownloadConfigSpecsNotModified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	f := newHTTPFetcher(server.URL, "secret", nil)
	resp, updated, err := f.DownloadConfigSpecs(context.Background(), 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated || resp != nil {
		t.Fatalf("expected a 304 to resolve to no update, got %+v updated=%v", resp, updated)
	}
}

func TestHTTPFetcherRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(downloadConfigSpecResponse{HasUpdates: true, Time: 7})
	}))
	defer server.Close()

	f := newHTTPFetcher(server.URL, "secret", nil)
	f.client.Timeout = 5 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, updated, err := f.DownloadConfigSpecs(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if !updated || resp == nil || resp.Time != 7 {
		t.Fatalf("expected eventual success, got %+v updated=%v", resp, updated)
	}
	if attempts != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", attempts)
	}
}

func TestHTTPFetcherGivesUpOnPersistentError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	f := newHTTPFetcher(server.URL, "secret", nil)
	_, _, err := f.DownloadConfigSpecs(context.Background(), 0)
	if err == nil {
		t.Fatalf("expected a non-retryable status to surface an error immediately")
	}
}
