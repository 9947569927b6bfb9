// Package service holds the booking record manager: it owns the private
// Booking and its public StatusLookup and keeps the pair in step.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/appid"
	"github.com/Eursukkul/guesthouse-booking/internal/events"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"github.com/Eursukkul/guesthouse-booking/internal/repository"
	"gorm.io/gorm"
)

const (
	maxSubmitAttempts = 3
	publishTimeout    = 10 * time.Second
)

type BookingService interface {
	Submit(ctx context.Context, in SubmitInput) (*models.Booking, error)
	Transition(ctx context.Context, applicationID string, to models.BookingStatus, reason string) (*models.Booking, error)
	Cancel(ctx context.Context, applicationID, email string) (*models.StatusLookup, error)
	Lookup(ctx context.Context, applicationID string) (*models.StatusLookup, error)
	Get(ctx context.Context, applicationID string) (*models.Booking, error)
	List(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error)
}

type IDGenerator interface {
	New() string
}

// RecordManager implements BookingService on top of the gorm repositories.
// Every committed change is queued for the publisher and sent in commit
// order by a single background drainer; publish failures are logged and
// never reach the caller.
type RecordManager struct {
	bookings  repository.BookingRepository
	lookups   repository.StatusLookupRepository
	ids       IDGenerator
	publisher events.Publisher
	log       *slog.Logger
	now       func() time.Time

	// outbox holds committed events not yet handed to the publisher.
	// draining is true while a drainer goroutine owns the queue.
	outboxMu sync.Mutex
	outbox   []events.Event
	draining bool
	pending  sync.WaitGroup
}

type Option func(*RecordManager)

func WithClock(now func() time.Time) Option {
	return func(m *RecordManager) { m.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(m *RecordManager) { m.log = log }
}

// NewRecordManager wires the manager. A nil publisher disables change events.
func NewRecordManager(
	bookings repository.BookingRepository,
	lookups repository.StatusLookupRepository,
	ids IDGenerator,
	publisher events.Publisher,
	opts ...Option,
) *RecordManager {
	m := &RecordManager{
		bookings:  bookings,
		lookups:   lookups,
		ids:       ids,
		publisher: publisher,
		log:       slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ BookingService = (*RecordManager)(nil)

// Submit validates the input and writes the booking and its status lookup
// in one transaction. A taken application id is regenerated and retried.
func (m *RecordManager) Submit(ctx context.Context, in SubmitInput) (*models.Booking, error) {
	const op = "service.BookingService.Submit"

	in = in.normalize()
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var (
		booking *models.Booking
		err     error
	)
	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		booking = in.toBooking(m.ids.New(), m.now())
		err = m.bookings.Transaction(ctx, func(tx *gorm.DB) error {
			if err := m.bookings.Create(ctx, tx, booking); err != nil {
				return err
			}
			lookup := booking.Lookup()
			return m.lookups.Create(ctx, tx, &lookup)
		})
		if !errors.Is(err, models.ErrDuplicateID) {
			break
		}
		m.log.Warn("application id already taken, regenerating",
			"application_id", booking.ApplicationID,
			"attempt", attempt,
		)
	}
	if err != nil {
		return nil, classify(op, err)
	}

	m.log.Info("booking submitted", "application_id", booking.ApplicationID)
	m.publish(booking)
	return booking, nil
}

// Transition moves a booking to Approved or Rejected, updating the booking
// and its lookup together. The booking row is locked for the duration, so
// concurrent reviews of one id are serialized; the later one observes the
// earlier outcome.
//
// Re-applying the current status (with the same reason) is a no-op success
// and publishes nothing.
func (m *RecordManager) Transition(ctx context.Context, applicationID string, to models.BookingStatus, reason string) (*models.Booking, error) {
	const op = "service.BookingService.Transition"

	reason = strings.TrimSpace(reason)
	if err := validateReview(to, reason); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rejection *string
	if to == models.StatusRejected {
		rejection = &reason
	}

	booking, changed, err := m.changeStatus(ctx, appid.Normalize(applicationID), to, rejection, nil)
	if err != nil {
		return nil, classify(op, err)
	}
	if changed {
		m.log.Info("booking reviewed", "application_id", booking.ApplicationID, "status", to)
		m.publish(booking)
	}
	return booking, nil
}

// Cancel lets a requester withdraw a pending booking. The email must match
// the one on the booking; a mismatch is reported as not found so that the
// endpoint does not confirm which ids exist.
func (m *RecordManager) Cancel(ctx context.Context, applicationID, email string) (*models.StatusLookup, error) {
	const op = "service.BookingService.Cancel"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%s: %w: email is required", op, models.ErrValidation)
	}

	owner := func(b *models.Booking) error {
		if !strings.EqualFold(b.Email, email) {
			return models.ErrNotFound
		}
		return nil
	}

	booking, changed, err := m.changeStatus(ctx, appid.Normalize(applicationID), models.StatusCancelled, nil, owner)
	if err != nil {
		return nil, classify(op, err)
	}
	if changed {
		m.log.Info("booking cancelled by requester", "application_id", booking.ApplicationID)
		m.publish(booking)
	}
	lookup := booking.Lookup()
	return &lookup, nil
}

// changeStatus is the dual-update: lock the booking, check the state
// machine, then update booking and lookup in the same transaction.
func (m *RecordManager) changeStatus(
	ctx context.Context,
	id string,
	to models.BookingStatus,
	reason *string,
	authorize func(*models.Booking) error,
) (*models.Booking, bool, error) {
	var (
		result  *models.Booking
		changed bool
	)
	err := m.bookings.Transaction(ctx, func(tx *gorm.DB) error {
		booking, err := m.bookings.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if authorize != nil {
			if err := authorize(booking); err != nil {
				return err
			}
		}

		if booking.Status == to {
			if !sameReason(booking.RejectionReason, reason) {
				return fmt.Errorf("%w: booking is already %s with a different reason", models.ErrInvalidTransition, to)
			}
			result = booking
			return nil
		}
		if !booking.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: %s booking cannot become %s", models.ErrInvalidTransition, booking.Status, to)
		}

		// One timestamp for both rows so the pair and the returned booking agree.
		at := m.now()
		if err := m.bookings.UpdateStatus(ctx, tx, id, to, reason, at); err != nil {
			return err
		}
		if err := m.lookups.UpdateStatus(ctx, tx, id, to, at); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: status lookup missing for %s", models.ErrPersistence, id)
			}
			return err
		}

		booking.Status = to
		booking.RejectionReason = reason
		booking.UpdatedAt = at
		result = booking
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return result, changed, nil
}

// Lookup reads only the public record.
func (m *RecordManager) Lookup(ctx context.Context, applicationID string) (*models.StatusLookup, error) {
	const op = "service.BookingService.Lookup"

	id := appid.Normalize(applicationID)
	if id == "" {
		return nil, fmt.Errorf("%s: %w: application id is required", op, models.ErrValidation)
	}
	lookup, err := m.lookups.FindByID(ctx, id)
	if err != nil {
		return nil, classify(op, err)
	}
	return lookup, nil
}

// Get returns the private booking record.
func (m *RecordManager) Get(ctx context.Context, applicationID string) (*models.Booking, error) {
	const op = "service.BookingService.Get"

	booking, err := m.bookings.FindByID(ctx, appid.Normalize(applicationID))
	if err != nil {
		return nil, classify(op, err)
	}
	return booking, nil
}

// List returns every booking newest first, optionally narrowed to one status.
func (m *RecordManager) List(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error) {
	const op = "service.BookingService.List"

	bookings, err := m.bookings.FindAll(ctx)
	if err != nil {
		return nil, classify(op, err)
	}
	if status != nil {
		bookings = slices.DeleteFunc(bookings, func(b models.Booking) bool { return b.Status != *status })
	}
	SortNewestFirst(bookings)
	return bookings, nil
}

// SortNewestFirst orders bookings by submission time, latest first. Ties
// fall back to the application id so the order is stable across reloads.
func SortNewestFirst(bookings []models.Booking) {
	slices.SortStableFunc(bookings, func(a, b models.Booking) int {
		if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ApplicationID, b.ApplicationID)
	})
}

// Wait blocks until every event queued so far has been handed to the
// publisher. The manager stays usable afterwards.
func (m *RecordManager) Wait() {
	m.pending.Wait()
}

// publish queues the event for b. Events leave in the order they were
// queued, so a booking's submitted event always precedes its decision.
func (m *RecordManager) publish(b *models.Booking) {
	if m.publisher == nil {
		return
	}
	ev := events.FromBooking(b, m.now())

	m.outboxMu.Lock()
	defer m.outboxMu.Unlock()
	m.pending.Add(1)
	m.outbox = append(m.outbox, ev)
	if !m.draining {
		m.draining = true
		go m.drain()
	}
}

func (m *RecordManager) drain() {
	for {
		m.outboxMu.Lock()
		if len(m.outbox) == 0 {
			m.draining = false
			m.outbox = nil
			m.outboxMu.Unlock()
			return
		}
		ev := m.outbox[0]
		m.outbox = m.outbox[1:]
		m.outboxMu.Unlock()

		m.send(ev)
		m.pending.Done()
	}
}

func (m *RecordManager) send(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := m.publisher.Publish(ctx, ev); err != nil {
		m.log.Error("failed to publish booking event",
			"type", ev.Type,
			"application_id", ev.ApplicationID,
			"error", err,
		)
	}
}

// classify keeps domain errors recognisable and marks everything else from
// the store as a persistence failure.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrPersistence):
		return fmt.Errorf("%s: %w", op, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
	}
}

func sameReason(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
