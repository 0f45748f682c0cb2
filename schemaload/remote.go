package schemaload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// RetryOption mirrors teacher's gateway/schema_fetcher.go RetryOption:
// attempts and a per-attempt timeout for SDL fetching.
type RetryOption struct {
	Attempts int
	Timeout  time.Duration
}

// serviceSDLResponse is the response body from a subgraph's GraphQL
// endpoint when queried with `{ _service { sdl } }`, per the federation
// subgraph spec's `_service` field.
type serviceSDLResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
}

// NewInstrumentedClient returns an *http.Client whose transport is wrapped
// with otelhttp, so every subgraph introspection request this package
// issues is traced the way teacher's ServeHTTP-side otelhttp.NewHandler
// traces inbound gateway requests — the client-side half of that same
// instrumentation split.
func NewInstrumentedClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// FetchRemoteSDL fetches a subgraph's SDL over the network by sending
// `{ _service { sdl } }` to its GraphQL endpoint, retrying up to
// retry.Attempts times. This is the network counterpart to
// LoadSubgraphs's file-based reads — not this repo's primary loading
// path (spec.md scopes live service discovery out of the planner's own
// concerns), but kept available for a deployment that composes schemas
// from already-running subgraphs instead of checked-in SDL files.
// Grounded directly on gateway/schema_fetcher.go's fetchSDL/doFetchSDL,
// adapted to take a context (for otelhttp span propagation and caller-side
// cancellation) and encoding/json in place of the teacher's
// goccy/go-json, which the teacher imports without declaring in its own
// go.mod (see DESIGN.md).
func FetchRemoteSDL(ctx context.Context, client *http.Client, host string, retry RetryOption) (string, error) {
	attempts := retry.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	timeout := retry.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	body := []byte(`{"query":"{_service{sdl}}"}`)

	var lastErr error
	for i := 0; i < attempts; i++ {
		sdl, err := doFetchRemoteSDL(ctx, client, host, body, timeout)
		if err == nil {
			return sdl, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("schemaload: fetch SDL from %s after %d attempt(s): %w", host, attempts, lastErr)
}

func doFetchRemoteSDL(ctx context.Context, client *http.Client, host string, body []byte, timeout time.Duration) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, host, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("schemaload: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("schemaload: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("schemaload: unexpected status code %d from %s", resp.StatusCode, host)
	}

	var svcResp serviceSDLResponse
	if err := json.NewDecoder(resp.Body).Decode(&svcResp); err != nil {
		return "", fmt.Errorf("schemaload: decode SDL response: %w", err)
	}
	if svcResp.Data.Service.SDL == "" {
		return "", fmt.Errorf("schemaload: empty SDL returned from %s", host)
	}

	return svcResp.Data.Service.SDL, nil
}
