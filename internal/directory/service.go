package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service is the query and mutation engine of the directory. Every operation
// starts from a fresh FetchAll; nothing is cached between calls.
type Service struct {
	store Store
	clock Clock
	newID func() string
}

type Option func(*Service)

// WithClock sets the clock used by Now.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithIDGenerator sets the id generator for new persons.
func WithIDGenerator(f func() string) Option { return func(s *Service) { s.newID = f } }

func NewService(store Store, opts ...Option) *Service {
	s := &Service{store: store, clock: SystemClock{}, newID: uuid.NewString}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Now is the reference time for BirthYear.
func (s *Service) Now() time.Time { return s.clock.Now() }

func (s *Service) PersonCount(ctx context.Context) (int, error) {
	persons, err := s.store.FetchAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(persons), nil
}

// AllPersons returns every person, or only those matching filter when it is
// non-nil. Store order is preserved.
func (s *Service) AllPersons(ctx context.Context, filter *YesNo) ([]PersonRecord, error) {
	persons, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return persons, nil
	}
	out := make([]PersonRecord, 0, len(persons))
	for _, p := range persons {
		if filter.Matches(p) {
			out = append(out, p)
		}
	}
	return out, nil
}

// FindPerson returns the first person named name, or nil.
func (s *Service) FindPerson(ctx context.Context, name string) (*PersonRecord, error) {
	persons, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	return findByName(persons, name), nil
}

// AddPerson stores a new person under a fresh id and returns the record the
// store acknowledged.
func (s *Service) AddPerson(ctx context.Context, in NewPerson) (*PersonRecord, error) {
	if in.Age < 0 {
		return nil, &InvalidArgumentError{Arg: "age", Reason: "must not be negative"}
	}
	persons, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if findByName(persons, in.Name) != nil {
		return nil, &DuplicateNameError{Name: in.Name}
	}

	rec := PersonRecord{
		ID:     s.newID(),
		Name:   in.Name,
		Age:    in.Age,
		Phone:  in.Phone,
		Street: in.Street,
		City:   in.City,
	}
	created, err := s.store.Create(ctx, rec)
	if errors.Is(err, ErrConflict) {
		return nil, &DuplicateNameError{Name: in.Name}
	}
	if err != nil {
		return nil, fmt.Errorf("create person %q: %w", in.Name, err)
	}
	return &created, nil
}

// EditPhoneNumber replaces the phone of the first person named name and
// returns the acknowledged record. It returns nil when nobody has that name.
func (s *Service) EditPhoneNumber(ctx context.Context, name, phone string) (*PersonRecord, error) {
	persons, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	existing := findByName(persons, name)
	if existing == nil {
		return nil, nil
	}

	merged := *existing
	merged.Phone = phone
	updated, err := s.store.Update(ctx, merged.ID, merged)
	if errors.Is(err, ErrNotFound) {
		// removed since the fetch
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("update person %q: %w", name, err)
	}
	return &updated, nil
}

func findByName(persons []PersonRecord, name string) *PersonRecord {
	for i := range persons {
		if persons[i].Name == name {
			p := persons[i]
			return &p
		}
	}
	return nil
}
