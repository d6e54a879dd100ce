package recordstore

import (
	"context"
	"net/http"
)

type headersKey struct{}

// WithHeaders returns a copy of ctx whose store calls carry h.
func WithHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return context.WithValue(ctx, headersKey{}, h.Clone())
}

// HeadersFromContext returns the headers attached by WithHeaders.
func HeadersFromContext(ctx context.Context) http.Header {
	h, _ := ctx.Value(headersKey{}).(http.Header)
	return h
}
