// Package feed keeps the admin dashboard's view of all bookings live. Every
// delivery is a full snapshot, never a diff: a subscriber replaces its view
// with whatever it receives last.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/events"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

// Lister loads every booking, newest first.
type Lister interface {
	List(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error)
}

type Snapshot struct {
	Rev      uint64           `json:"rev"`
	At       time.Time        `json:"at"`
	Bookings []models.Booking `json:"bookings"`
}

type Hub struct {
	src Lister
	log *slog.Logger
	now func() time.Time

	// refresh serializes load+broadcast so an older load never overwrites
	// a newer one.
	refresh sync.Mutex

	mu      sync.Mutex
	current *Snapshot
	rev     uint64
	subs    map[*Subscription]struct{}
}

func NewHub(src Lister, log *slog.Logger) *Hub {
	return &Hub{
		src:  src,
		log:  log,
		now:  time.Now,
		subs: make(map[*Subscription]struct{}),
	}
}

// Subscription delivers snapshots on C. C holds at most one pending
// snapshot; a slow reader only ever sees the newest one.
type Subscription struct {
	C <-chan Snapshot

	ch   chan Snapshot
	hub  *Hub
	once sync.Once
}

// Subscribe registers a new subscriber and queues the current snapshot for
// it, loading one first if the hub has none yet.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	h.mu.Lock()
	loaded := h.current != nil
	h.mu.Unlock()
	if !loaded {
		if err := h.Refresh(ctx); err != nil {
			return nil, err
		}
	}

	ch := make(chan Snapshot, 1)
	sub := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[sub] = struct{}{}
	if h.current != nil {
		sub.ch <- *h.current
	}
	return sub, nil
}

// Close detaches the subscription and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		delete(s.hub.subs, s)
		close(s.ch)
	})
}

// Refresh reloads all bookings and broadcasts the snapshot.
func (h *Hub) Refresh(ctx context.Context) error {
	h.refresh.Lock()
	defer h.refresh.Unlock()

	bookings, err := h.src.List(ctx, nil)
	if err != nil {
		return fmt.Errorf("feed.Hub.Refresh: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.rev++
	snap := Snapshot{Rev: h.rev, At: h.now(), Bookings: bookings}
	h.current = &snap
	for sub := range h.subs {
		deliver(sub.ch, snap)
	}
	h.log.Debug("feed refreshed", "rev", snap.Rev, "bookings", len(bookings), "subscribers", len(h.subs))
	return nil
}

// deliver replaces any undelivered snapshot with snap. Callers hold h.mu,
// which makes the hub the only sender.
func deliver(ch chan Snapshot, snap Snapshot) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- snap
}

// Subscribers returns the number of attached subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// HandleEvent refreshes the feed on any booking change.
func (h *Hub) HandleEvent(ctx context.Context, _ events.Event) error {
	return h.Refresh(ctx)
}
