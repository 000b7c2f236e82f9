package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
)

func TestFetchReturnsBody(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(time.Second, zap.NewNop())
	data, err := fetcher.Fetch(context.Background(), server.URL+"/image.png")
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("unexpected body: %v", data)
	}
}

func TestFetchNonSuccessStatusIsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	fetcher := NewHTTPImageFetcher(time.Second, zap.NewNop())
	_, err := fetcher.Fetch(context.Background(), server.URL+"/missing.png")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var fetchErr *engine.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
}

func TestFetchUnreachableHostIsFetchError(t *testing.T) {
	fetcher := NewHTTPImageFetcher(100*time.Millisecond, zap.NewNop())
	_, err := fetcher.Fetch(context.Background(), "http://127.0.0.1:1/unreachable.png")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	var fetchErr *engine.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected FetchError, got %T", err)
	}
}
