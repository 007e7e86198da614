// Package clients wraps the remote authentication and booking API
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tutorhub/frontend/internal/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Sentinel errors returned by the API clients. Use errors.Is to match them.
var (
	// ErrRequestFailed covers transport failures, unexpected statuses and undecodable responses
	ErrRequestFailed = errors.New("request failed")
	// ErrUnauthorized is returned when the API rejects the credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is returned when the requested resource does not exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest is returned when the API rejects the submitted fields
	ErrInvalidRequest = errors.New("invalid request")
)

// maxResponseSize caps how much of a response body is read
const maxResponseSize = 1 << 20

// APIError carries the status code and message reported by the API.
// It unwraps to one of the sentinel errors.
type APIError struct {
	StatusCode int
	Message    string
	kind       error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status %d", e.kind, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.kind, e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// baseClient performs JSON requests against the API base URL
type baseClient struct {
	baseURL    string
	httpClient *http.Client
}

func newBaseClient(baseURL string, timeout time.Duration, transport http.RoundTripper) baseClient {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return baseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}
}

// request describes one call to the API
type request struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

// do sends the request and decodes a 2xx JSON body into out (if non-nil).
// The returned response has its body consumed; headers and cookies stay readable.
func (c *baseClient) do(ctx context.Context, req request, out any) (*http.Response, error) {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrRequestFailed, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if requestID := middleware.GetRequestID(ctx); requestID != "" {
		httpReq.Header.Set(middleware.RequestIDHeader, requestID)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrRequestFailed, req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return resp, fmt.Errorf("%w: failed to read response: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, statusError(resp.StatusCode, raw)
	}

	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp, fmt.Errorf("%w: failed to decode response: %v", ErrRequestFailed, err)
		}
	}

	return resp, nil
}

// statusError maps a non-2xx status to an APIError
func statusError(status int, raw []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(raw, &payload)
	message := payload.Error
	if message == "" {
		message = payload.Message
	}

	kind := ErrRequestFailed
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = ErrUnauthorized
	case status == http.StatusNotFound:
		kind = ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusConflict || status == http.StatusUnprocessableEntity:
		kind = ErrInvalidRequest
	}

	return &APIError{StatusCode: status, Message: message, kind: kind}
}
