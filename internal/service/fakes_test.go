package service_test

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/events"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"github.com/Eursukkul/guesthouse-booking/internal/repository"
	"gorm.io/gorm"
)

// memStore is an in-memory stand-in for the database. Transaction snapshots
// both tables and restores them when fn or the simulated commit fails, so
// tests observe the same all-or-nothing behaviour as Postgres.
type memStore struct {
	mu       sync.Mutex
	bookings map[string]models.Booking
	lookups  map[string]models.StatusLookup

	// failCommit, when set, is returned once by the next Transaction after
	// fn succeeds, and the writes are discarded.
	failCommit error
	// failLookupCreate, when set, is returned by the next lookup insert.
	failLookupCreate error

	transactions int
}

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[string]models.Booking),
		lookups:  make(map[string]models.StatusLookup),
	}
}

func (s *memStore) repos() (repository.BookingRepository, repository.StatusLookupRepository) {
	return &memBookings{s}, &memLookups{s}
}

// pairs returns copies of both tables for assertions.
func (s *memStore) pairs() (map[string]models.Booking, map[string]models.StatusLookup) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.bookings), maps.Clone(s.lookups)
}

type memBookings struct{ s *memStore }

var _ repository.BookingRepository = (*memBookings)(nil)

func (r *memBookings) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions++

	bookings, lookups := maps.Clone(s.bookings), maps.Clone(s.lookups)
	err := fn(nil)
	if err == nil && s.failCommit != nil {
		err, s.failCommit = s.failCommit, nil
	}
	if err != nil {
		s.bookings, s.lookups = bookings, lookups
	}
	return err
}

// Methods taking a tx run inside Transaction and therefore already hold the lock.

func (r *memBookings) Create(_ context.Context, _ *gorm.DB, b *models.Booking) error {
	if _, taken := r.s.bookings[b.ApplicationID]; taken {
		return fmt.Errorf("memBookings.Create: %w", models.ErrDuplicateID)
	}
	r.s.bookings[b.ApplicationID] = *b
	return nil
}

func (r *memBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (r *memBookings) FindByIDForUpdate(_ context.Context, _ *gorm.DB, id string) (*models.Booking, error) {
	b, ok := r.s.bookings[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &b, nil
}

func (r *memBookings) FindAll(context.Context) ([]models.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]models.Booking, 0, len(r.s.bookings))
	for _, b := range r.s.bookings {
		out = append(out, b)
	}
	return out, nil
}

func (r *memBookings) UpdateStatus(_ context.Context, _ *gorm.DB, id string, status models.BookingStatus, reason *string, at time.Time) error {
	b, ok := r.s.bookings[id]
	if !ok {
		return models.ErrNotFound
	}
	b.Status = status
	b.RejectionReason = reason
	b.UpdatedAt = at
	r.s.bookings[id] = b
	return nil
}

type memLookups struct{ s *memStore }

var _ repository.StatusLookupRepository = (*memLookups)(nil)

func (r *memLookups) Create(_ context.Context, _ *gorm.DB, l *models.StatusLookup) error {
	if err := r.s.failLookupCreate; err != nil {
		r.s.failLookupCreate = nil
		return err
	}
	if _, taken := r.s.lookups[l.ApplicationID]; taken {
		return models.ErrDuplicateID
	}
	r.s.lookups[l.ApplicationID] = *l
	return nil
}

func (r *memLookups) FindByID(_ context.Context, id string) (*models.StatusLookup, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.lookups[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &l, nil
}

func (r *memLookups) UpdateStatus(_ context.Context, _ *gorm.DB, id string, status models.BookingStatus, at time.Time) error {
	l, ok := r.s.lookups[id]
	if !ok {
		return models.ErrNotFound
	}
	l.Status = status
	l.UpdatedAt = at
	r.s.lookups[id] = l
	return nil
}

// seqIDs hands out the given ids in order, then falls back to a counter.
type seqIDs struct {
	mu  sync.Mutex
	ids []string
	n   int
}

func (g *seqIDs) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.ids) > 0 {
		id := g.ids[0]
		g.ids = g.ids[1:]
		return id
	}
	g.n++
	return fmt.Sprintf("HPU-TEST-%05d", g.n)
}

// recordingPublisher keeps every published event. slow delays the publish
// of matching event types, to give a later event the chance to overtake.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
	slow   map[events.Type]time.Duration
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	if d := p.slow[ev.Type]; d > 0 {
		time.Sleep(d)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}
