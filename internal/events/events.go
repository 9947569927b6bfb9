// Package events carries booking changes from the record manager to the
// post-commit consumers (applicant notifications, admin feed).
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

type Type string

const (
	TypeSubmitted Type = "submitted"
	TypeApproved  Type = "approved"
	TypeRejected  Type = "rejected"
	TypeCancelled Type = "cancelled"
)

// RoutingKey is the broker routing key for events of this type.
func (t Type) RoutingKey() string { return "booking." + string(t) }

// TypeFor maps a booking status onto the event announcing it.
func TypeFor(status models.BookingStatus) Type {
	switch status {
	case models.StatusApproved:
		return TypeApproved
	case models.StatusRejected:
		return TypeRejected
	case models.StatusCancelled:
		return TypeCancelled
	default:
		return TypeSubmitted
	}
}

// Event is published once per committed change.
type Event struct {
	Type          Type                 `json:"type"`
	ApplicationID string               `json:"application_id"`
	Name          string               `json:"name"`
	Email         string               `json:"email"`
	CheckIn       models.Date          `json:"check_in"`
	Status        models.BookingStatus `json:"status"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// FromBooking builds the event announcing b's current status.
func FromBooking(b *models.Booking, at time.Time) Event {
	ev := Event{
		Type:          TypeFor(b.Status),
		ApplicationID: b.ApplicationID,
		Name:          b.Name,
		Email:         b.Email,
		CheckIn:       b.CheckIn,
		Status:        b.Status,
		OccurredAt:    at,
	}
	if b.RejectionReason != nil {
		ev.Reason = *b.RejectionReason
	}
	return ev
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler consumes one event. Errors are logged by the caller and never
// reach the code that committed the change.
type Handler func(ctx context.Context, ev Event) error

// LocalBus delivers events to in-process handlers, each on its own goroutine.
type LocalBus struct {
	log      *slog.Logger
	mu       sync.RWMutex
	handlers map[string]Handler
	wg       sync.WaitGroup
}

func NewLocalBus(log *slog.Logger) *LocalBus {
	return &LocalBus{log: log, handlers: make(map[string]Handler)}
}

// Subscribe registers h under name, replacing any handler with that name.
func (b *LocalBus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = h
}

func (b *LocalBus) Publish(ctx context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ctx = context.WithoutCancel(ctx)
	for name, h := range b.handlers {
		name, h := name, h
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			if err := h(ctx, ev); err != nil {
				b.log.Error("event handler failed",
					"handler", name,
					"type", ev.Type,
					"application_id", ev.ApplicationID,
					"error", err,
				)
			}
		}()
	}
	return nil
}

// Wait blocks until every handler started so far has returned.
func (b *LocalBus) Wait() {
	b.wg.Wait()
}
