package directory

import (
	"context"
	"errors"
)

var (
	// ErrConflict indicates the store refused a write that would break name
	// uniqueness.
	ErrConflict = errors.New("person conflicts with an existing record")

	// ErrNotFound indicates the record addressed by id does not exist.
	ErrNotFound = errors.New("person not found")
)

// Store is the record store collaborator.
//
// FetchAll returns the whole collection in store order. Create and Update
// return the record as acknowledged by the store.
type Store interface {
	FetchAll(ctx context.Context) ([]PersonRecord, error)
	Create(ctx context.Context, rec PersonRecord) (PersonRecord, error)
	Update(ctx context.Context, id string, rec PersonRecord) (PersonRecord, error)
}
