package directory_test

import (
	"context"
	"sync"

	"github.com/hanpama/persongraph/internal/directory"
)

// fakeStore is an in-memory directory.Store that records write calls.
type fakeStore struct {
	mu       sync.Mutex
	persons  []directory.PersonRecord
	fetchErr error
	writeErr error
	creates  []directory.PersonRecord
	updates  []directory.PersonRecord
}

func newFakeStore(persons ...directory.PersonRecord) *fakeStore {
	return &fakeStore{persons: persons}
}

func (f *fakeStore) FetchAll(ctx context.Context) ([]directory.PersonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]directory.PersonRecord, len(f.persons))
	copy(out, f.persons)
	return out, nil
}

func (f *fakeStore) Create(ctx context.Context, rec directory.PersonRecord) (directory.PersonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, rec)
	if f.writeErr != nil {
		return directory.PersonRecord{}, f.writeErr
	}
	f.persons = append(f.persons, rec)
	return rec, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, rec directory.PersonRecord) (directory.PersonRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, rec)
	if f.writeErr != nil {
		return directory.PersonRecord{}, f.writeErr
	}
	for i := range f.persons {
		if f.persons[i].ID == id {
			f.persons[i] = rec
			return rec, nil
		}
	}
	return directory.PersonRecord{}, directory.ErrNotFound
}
