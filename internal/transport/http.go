package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// maxErrorBodyBytes bounds how much of an error response body is read for
// the error message. Oversized bodies are truncated, not rejected.
const maxErrorBodyBytes = 4 << 10

// httpHandler is the core handler that performs the actual HTTP exchange
// with the platform. All resilience behavior lives in middleware above it.
type httpHandler struct {
	client    *http.Client
	endpoint  string
	apiKey    string
	userAgent string
}

// NewHTTPHandler creates the core handler for the given platform endpoint.
// The endpoint must not end with a slash; request paths begin with one.
func NewHTTPHandler(client *http.Client, endpoint, apiKey, userAgent string) Handler {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpHandler{
		client:    client,
		endpoint:  strings.TrimRight(endpoint, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
	}
}

// Handle implements Handler by issuing the HTTP request and converting
// non-2xx statuses into *APIError.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	u := h.endpoint + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		encoded, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if h.apiKey != "" {
		httpReq.Header.Set("X-API-Key", h.apiKey)
	}
	if h.userAgent != "" {
		httpReq.Header.Set("User-Agent", h.userAgent)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode >= 200 && httpResp.StatusCode < 300 {
		payload, readErr := io.ReadAll(httpResp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("read response body: %w", readErr)
		}
		return &Response{
			StatusCode: httpResp.StatusCode,
			Body:       payload,
			Header:     httpResp.Header,
		}, nil
	}

	return nil, newAPIError(httpResp)
}

// newAPIError builds an *APIError from a non-2xx response, extracting the
// platform's error detail and any retry guidance.
func newAPIError(resp *http.Response) *APIError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    extractErrorMessage(raw, resp.Status),
		RequestID:  resp.Header.Get("X-Request-Id"),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}
}

// extractErrorMessage pulls the human-readable detail out of a platform
// error body. The platform uses {"detail": ...} but {"error": ...} and
// {"message": ...} shapes appear behind proxies, so all three are accepted.
func extractErrorMessage(raw []byte, fallback string) string {
	var payload struct {
		Detail  string `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Detail != "":
			return payload.Detail
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}
	if trimmed := strings.TrimSpace(string(raw)); trimmed != "" {
		return trimmed
	}
	return fallback
}

// parseRetryAfter handles both Retry-After formats: delay seconds and an
// HTTP date. Unparseable values yield zero rather than an error.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
