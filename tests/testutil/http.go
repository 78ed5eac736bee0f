package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orderdesk/backend/internal/domain/shared"
	"github.com/orderdesk/backend/internal/interfaces/http/dto"
	"github.com/orderdesk/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
)

// APIClient sends requests to an in-process handler on behalf of an actor
type APIClient struct {
	t       *testing.T
	handler http.Handler
	prefix  string
}

// NewAPIClient creates a client whose paths are relative to prefix, e.g. "/api/v1"
func NewAPIClient(t *testing.T, handler http.Handler, prefix string) *APIClient {
	return &APIClient{t: t, handler: handler, prefix: prefix}
}

// APIResponse is a recorded response decoded into the standard envelope
type APIResponse struct {
	Code     int
	Envelope dto.Response
	raw      []byte
}

// RequestOption customizes a request before it is served
type RequestOption func(*http.Request)

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// WithIdempotencyKey sets the Idempotency-Key header
func WithIdempotencyKey(key string) RequestOption {
	return WithHeader(middleware.HeaderIdempotencyKey, key)
}

// Do serves one request. A zero actor sends no identity headers.
func (c *APIClient) Do(actor shared.Actor, method, path string, body any, opts ...RequestOption) *APIResponse {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err, "marshal request body")
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, c.prefix+path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.Role != "" {
		req.Header.Set(middleware.HeaderActorID, actor.ID.String())
		req.Header.Set(middleware.HeaderActorRole, string(actor.Role))
	}
	for _, opt := range opts {
		opt(req)
	}

	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)

	resp := &APIResponse{Code: w.Code, raw: w.Body.Bytes()}
	require.NoError(c.t, json.Unmarshal(resp.raw, &resp.Envelope), "decode envelope: %s", resp.raw)
	return resp
}

// ErrorCode returns the error code of a failed response, or "" on success
func (r *APIResponse) ErrorCode() string {
	if r.Envelope.Error == nil {
		return ""
	}
	return r.Envelope.Error.Code
}

// DataAs decodes the envelope's data field into T
func DataAs[T any](t *testing.T, r *APIResponse) T {
	t.Helper()

	var wrapper struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.Unmarshal(r.raw, &wrapper), "decode data: %s", r.raw)
	return wrapper.Data
}

// RequireStatus fails the test when the response code differs, printing the body
func (r *APIResponse) RequireStatus(t *testing.T, code int) *APIResponse {
	t.Helper()
	require.Equal(t, code, r.Code, "unexpected status, body: %s", r.raw)
	return r
}
