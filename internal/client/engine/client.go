package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"shiftsync/internal/models"
)

// TokenFunc supplies the bearer credential for each call. Token issuance and
// refresh live outside the sync engine.
type TokenFunc func(ctx context.Context) (string, error)

// TransportError marks a round-level network failure: offline, timeout, DNS.
// No local state may change in response to one; the round is simply retried.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// APIClient talks to the reconciliation and bootstrap endpoints.
type APIClient struct {
	baseURL string
	token   TokenFunc
	http    *http.Client
}

// NewAPIClient creates a client for the server at baseURL.
func NewAPIClient(baseURL string, token TokenFunc) *APIClient {
	return &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Sync posts one batch of changes and returns the server's verdict.
func (c *APIClient) Sync(ctx context.Context, req models.SyncRequest) (*models.SyncResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync request: %w", err)
	}

	var resp models.SyncResponse
	if err := c.do(ctx, http.MethodPost, "/api/sync", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bootstrap pulls the full snapshot for cold-populating an empty store.
func (c *APIClient) Bootstrap(ctx context.Context, includeDeleted bool) (*models.BootstrapResponse, error) {
	path := "/api/bootstrap"
	if includeDeleted {
		path += "?includeDeleted=true"
	}

	var resp models.BootstrapResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body *bytes.Reader, out any) error {
	var reader io.Reader
	if body != nil {
		reader = body
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	httpResp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: httpResp.StatusCode}
		var errBody models.ErrorResponse
		if decodeErr := json.NewDecoder(httpResp.Body).Decode(&errBody); decodeErr == nil {
			apiErr.Code = errBody.Code
			apiErr.Message = errBody.Message
		}
		return apiErr
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return &TransportError{Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
