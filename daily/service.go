package daily

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Status tells whether a set was just generated or already stored.
type Status string

const (
	Generated Status = "generated"
	Existing  Status = "existing"
)

// Service hands out the set for a day, generating it at most once.
type Service struct {
	store *Store
	gen   Generator
	now   func() time.Time
}

func NewService(store *Store, gen Generator) *Service {
	return &Service{store: store, gen: gen, now: time.Now}
}

// Today is the current local date key.
func (s *Service) Today() string {
	return s.now().Format(DateLayout)
}

func (s *Service) Get(ctx context.Context, date string) (Set, error) {
	if !ValidDate(date) {
		return Set{}, ErrInvalidDate
	}
	return s.store.Get(ctx, date)
}

func (s *Service) Meta(ctx context.Context, date string) (Meta, error) {
	if !ValidDate(date) {
		return Meta{}, ErrInvalidDate
	}
	return s.store.Meta(ctx, date)
}

// Generate returns today's set, generating and storing it if needed. When
// another request stored the day's set first, that set wins.
func (s *Service) Generate(ctx context.Context) (Status, Set, Meta, error) {
	today := s.Today()

	if set, err := s.store.Get(ctx, today); err == nil {
		meta, err := s.store.Meta(ctx, today)
		return Existing, set, meta, err
	} else if !errors.Is(err, ErrNotFound) {
		return "", Set{}, Meta{}, err
	}

	r, err := s.gen.Generate(ctx, today)
	if err != nil {
		return "", Set{}, Meta{}, fmt.Errorf("generate daily set: %w", err)
	}
	r.Set.Date = today
	if err := r.Set.Validate(); err != nil {
		return "", Set{}, Meta{}, err
	}

	inserted, err := s.store.Insert(ctx, r, s.now())
	if err != nil {
		return "", Set{}, Meta{}, err
	}

	status := Generated
	set := r.Set
	if !inserted {
		status = Existing
		if set, err = s.store.Get(ctx, today); err != nil {
			return "", Set{}, Meta{}, err
		}
	}
	meta, err := s.store.Meta(ctx, today)
	return status, set, meta, err
}
