// Package client is the consumer-side library of the query protocol: a
// fluent builder that accumulates an OperationSpec and executes it
// through a pluggable transport, either in-process against an embedded
// gateway or over HTTP against a remote one.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tillsync/tillsync/internal/gateway"
	"github.com/tillsync/tillsync/internal/queryspec"
	"github.com/tillsync/tillsync/internal/record"
)

// Transport sends one OperationSpec to a gateway and returns the rows.
type Transport interface {
	Do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error)
}

// Local executes specs against an in-process gateway. Used when the
// session engine runs embedded in the same binary as the store.
type Local struct {
	Gateway *gateway.Gateway
}

// Do implements Transport.
func (l *Local) Do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error) {
	return l.Gateway.Do(ctx, spec)
}

// HTTP executes specs by POSTing them to a remote gateway's /api/query
// endpoint.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTP creates an HTTP transport for the given base URL.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Client:  http.DefaultClient,
	}
}

// wireResponse mirrors the gateway's {data, error} envelope.
type wireResponse struct {
	Data  []record.Record `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Do implements Transport.
func (h *HTTP) Do(ctx context.Context, spec queryspec.OperationSpec) ([]record.Record, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode spec: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/api/query", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := h.Client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query request: %w", err)
	}
	defer resp.Body.Close()

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if wire.Error != nil {
		return nil, errors.New(wire.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}
	if wire.Data == nil {
		return []record.Record{}, nil
	}
	return wire.Data, nil
}
