// Package memstore is an in-memory person record store speaking the same HTTP
// contract as a json-server "persons" collection. It backs local runs and
// end-to-end tests.
package memstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/hanpama/persongraph/internal/directory"
)

var (
	ErrDuplicateID   = errors.New("memstore: id already exists")
	ErrDuplicateName = errors.New("memstore: name already exists")
	ErrNotFound      = errors.New("memstore: person not found")
)

// Store keeps persons in insertion order. It is safe for concurrent use.
type Store struct {
	mu          sync.RWMutex
	persons     []directory.PersonRecord
	uniqueNames bool
}

type Option func(*Store)

// WithUniqueNames makes Insert and Replace reject a name held by another
// record.
func WithUniqueNames(on bool) Option { return func(s *Store) { s.uniqueNames = on } }

// WithPersons seeds the store.
func WithPersons(persons ...directory.PersonRecord) Option {
	return func(s *Store) { s.persons = append(s.persons, persons...) }
}

func New(opts ...Option) *Store {
	s := &Store{uniqueNames: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// database is the json-server db.json layout.
type database struct {
	Persons []directory.PersonRecord `json:"persons"`
}

// LoadSeed reads a db.json document.
func LoadSeed(r io.Reader) ([]directory.PersonRecord, error) {
	var db database
	if err := json.NewDecoder(r).Decode(&db); err != nil {
		return nil, fmt.Errorf("memstore: decode seed: %w", err)
	}
	return db.Persons, nil
}

// LoadSeedFile is LoadSeed on the file at path.
func LoadSeedFile(path string) ([]directory.PersonRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSeed(f)
}

func (s *Store) List() []directory.PersonRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]directory.PersonRecord, len(s.persons))
	copy(out, s.persons)
	return out
}

func (s *Store) Get(id string) (directory.PersonRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.persons[i], nil
	}
	return directory.PersonRecord{}, ErrNotFound
}

// Insert appends rec, assigning an id when it has none. The uniqueness checks
// and the append happen under one lock.
func (s *Store) Insert(rec directory.PersonRecord) (directory.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if s.indexOf(rec.ID) >= 0 {
		return directory.PersonRecord{}, ErrDuplicateID
	}
	if s.nameTaken(rec.Name, "") {
		return directory.PersonRecord{}, ErrDuplicateName
	}
	s.persons = append(s.persons, rec)
	return rec, nil
}

// Replace overwrites the record stored under id. The id itself is immutable.
func (s *Store) Replace(id string, rec directory.PersonRecord) (directory.PersonRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return directory.PersonRecord{}, ErrNotFound
	}
	if s.nameTaken(rec.Name, id) {
		return directory.PersonRecord{}, ErrDuplicateName
	}
	rec.ID = id
	s.persons[i] = rec
	return rec, nil
}

func (s *Store) indexOf(id string) int {
	for i := range s.persons {
		if s.persons[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) nameTaken(name, exceptID string) bool {
	if !s.uniqueNames {
		return false
	}
	for _, p := range s.persons {
		if p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}
