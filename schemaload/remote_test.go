package schemaload_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/n9te9/federation-planner/schemaload"
)

func TestFetchRemoteSDL_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"_service": map[string]any{"sdl": "type Query { ping: String }"},
			},
		})
	}))
	defer srv.Close()

	client := schemaload.NewInstrumentedClient()
	sdl, err := schemaload.FetchRemoteSDL(context.Background(), client, srv.URL, schemaload.RetryOption{Attempts: 1, Timeout: time.Second})
	if err != nil {
		t.Fatalf("FetchRemoteSDL failed: %v", err)
	}
	if sdl != "type Query { ping: String }" {
		t.Fatalf("sdl = %q, want the fixture SDL", sdl)
	}
}

func TestFetchRemoteSDL_RetriesOnFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"_service": map[string]any{"sdl": "type Query { ok: Boolean }"},
			},
		})
	}))
	defer srv.Close()

	client := schemaload.NewInstrumentedClient()
	sdl, err := schemaload.FetchRemoteSDL(context.Background(), client, srv.URL, schemaload.RetryOption{Attempts: 3, Timeout: time.Second})
	if err != nil {
		t.Fatalf("FetchRemoteSDL failed after retries: %v", err)
	}
	if sdl != "type Query { ok: Boolean }" {
		t.Fatalf("sdl = %q, want the fixture SDL", sdl)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("server received %d calls, want 3", got)
	}
}

func TestFetchRemoteSDL_ExhaustsRetriesAndFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := schemaload.NewInstrumentedClient()
	_, err := schemaload.FetchRemoteSDL(context.Background(), client, srv.URL, schemaload.RetryOption{Attempts: 2, Timeout: time.Second})
	if err == nil {
		t.Fatal("expected an error once retries are exhausted")
	}
}
