package reqid

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// Header carries the request ID on inbound and outbound HTTP requests.
const Header = "X-Request-Id"

type key struct{}

// entry pairs the request ID with a sequence number unique to this process.
// Inbound IDs are client supplied and may repeat; seq never does.
type entry struct {
	id  string
	seq uint64
}

var lastSeq atomic.Uint64

func withEntry(parent context.Context, id string) (context.Context, string) {
	return context.WithValue(parent, key{}, entry{id: id, seq: lastSeq.Add(1)}), id
}

// NewContext returns a copy of parent carrying a new random request ID, and
// the ID.
func NewContext(parent context.Context) (context.Context, string) {
	return withEntry(parent, uuid.NewString())
}

// WithID returns a copy of parent carrying id. An empty id yields a fresh one.
func WithID(parent context.Context, id string) (context.Context, string) {
	if id == "" {
		return NewContext(parent)
	}
	return withEntry(parent, id)
}

// FromContext extracts the request ID from ctx.
func FromContext(ctx context.Context) (string, bool) {
	e, ok := ctx.Value(key{}).(entry)
	return e.id, ok
}

// Seq returns the sequence number assigned when ctx was tagged by NewContext
// or WithID. Two contexts tagged with the same ID get different numbers.
func Seq(ctx context.Context) (uint64, bool) {
	e, ok := ctx.Value(key{}).(entry)
	return e.seq, ok
}
