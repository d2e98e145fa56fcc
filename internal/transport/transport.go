// Package transport provides the resilient HTTP pipeline the client speaks
// to the evaluation platform through. Requests flow through a composable
// middleware chain (logging, retry, rate limiting, circuit breaking) before
// reaching the core HTTP handler, so cross-cutting behavior stays out of the
// API surface.
package transport

import (
	"context"
	"net/http"
	"net/url"
)

// Request is one platform API call: an HTTP method and path plus optional
// query parameters and a JSON-encodable body. Middleware may annotate it but
// must not mutate caller-owned maps.
type Request struct {
	// Method is the HTTP method, e.g. http.MethodGet.
	Method string

	// Path is the API path relative to the configured endpoint, e.g.
	// "/api/v1/runs". It must begin with "/".
	Path string

	// Query holds URL query parameters, nil when none.
	Query url.Values

	// Body is JSON-encoded as the request body when non-nil.
	Body any

	// Header carries extra headers merged over the defaults.
	Header http.Header
}

// Response is the raw outcome of a platform API call. Callers decode Body
// themselves; the pipeline only guarantees it is the full response payload
// for a non-error status.
type Response struct {
	// StatusCode is the HTTP status.
	StatusCode int

	// Body is the complete response body.
	Body []byte

	// Header is the response header set.
	Header http.Header
}

// Handler processes platform requests. It is the core abstraction the
// middleware chain composes around.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler. Middleware
// executes in the order provided, first middleware outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
