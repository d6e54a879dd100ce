// Package events defines the values published on the event bus. Each
// Start/Finish pair brackets one unit of work and is published with the
// context of that work.
package events

import (
	"net/http"
	"time"
)

// HTTPStart is published when the GraphQL endpoint receives a request.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is published after the response has been written.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}

// GraphQLStart is published before an operation executes. OperationType is
// "query" or "mutation", or empty when no operation could be selected.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is published after an operation executed.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Errors        []error
	Duration      time.Duration
}

// StoreCallStart is published before a record store HTTP call. CallID pairs
// it with its StoreCallFinish.
type StoreCallStart struct {
	CallID uint64
	Method string
	URL    string
}

// StoreCallFinish is published after a record store HTTP call. Status is 0
// when no response was received.
type StoreCallFinish struct {
	CallID   uint64
	Method   string
	URL      string
	Status   int
	Err      error
	Duration time.Duration
}
