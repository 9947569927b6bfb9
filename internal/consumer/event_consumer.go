package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

const handleTimeout = 30 * time.Second

// EventConsumer feeds broker deliveries of booking events into a handler.
type EventConsumer struct {
	name    string
	handler events.Handler
	log     *slog.Logger
	done    chan struct{}
}

func NewEventConsumer(name string, handler events.Handler, log *slog.Logger) *EventConsumer {
	return &EventConsumer{
		name:    name,
		handler: handler,
		log:     log.With("consumer", name),
		done:    make(chan struct{}),
	}
}

// Start processes messages until msgs is closed.
func (ec *EventConsumer) Start(msgs <-chan amqp.Delivery) {
	go func() {
		defer close(ec.done)
		for msg := range msgs {
			ec.handleMessage(msg)
		}
		ec.log.Info("channel closed, stopping consumer")
	}()
}

// Done is closed once the delivery channel has been drained.
func (ec *EventConsumer) Done() <-chan struct{} {
	return ec.done
}

// handleMessage never requeues: notifications are not retried and the feed
// refreshes on the next event anyway.
func (ec *EventConsumer) handleMessage(msg amqp.Delivery) {
	var ev events.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		ec.log.Error("failed to unmarshal event", "error", err)
		msg.Nack(false, false)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := ec.handler(ctx, ev); err != nil {
		ec.log.Error("event handler failed",
			"type", ev.Type,
			"application_id", ev.ApplicationID,
			"error", err,
		)
		msg.Nack(false, false)
		return
	}

	ec.log.Debug("handled event", "type", ev.Type, "application_id", ev.ApplicationID)
	msg.Ack(false)
}
