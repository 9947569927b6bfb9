// Package notify sends applicant emails through an external mail-sending
// service. Sending is best effort: the booking has already committed by the
// time a notification is attempted, so failures are logged and dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/events"
)

type Template string

const (
	TemplateSubmitted Template = "submitted"
	TemplateApproved  Template = "approved"
	TemplateRejected  Template = "rejected"
	TemplateCancelled Template = "cancelled"
)

// Notification is one email to one applicant.
type Notification struct {
	Recipient string
	Template  Template
	Payload   Payload
}

type Payload struct {
	Name          string `json:"name"`
	ApplicationID string `json:"application_id"`
	CheckIn       string `json:"check_in"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Config describes the mail service account. Templates maps each selector
// onto the service's template id.
type Config struct {
	Endpoint  string
	ServiceID string
	PublicKey string
	Templates map[Template]string
	Timeout   time.Duration
}

// Dispatcher posts notifications to the mail service's send endpoint.
type Dispatcher struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func NewDispatcher(cfg Config, log *slog.Logger) *Dispatcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Enabled reports whether an endpoint is configured. A disabled dispatcher
// logs what it would have sent and returns nil.
func (d *Dispatcher) Enabled() bool {
	return d.cfg.Endpoint != ""
}

type sendRequest struct {
	ServiceID      string         `json:"service_id"`
	TemplateID     string         `json:"template_id"`
	UserID         string         `json:"user_id"`
	TemplateParams map[string]any `json:"template_params"`
}

func (d *Dispatcher) Send(ctx context.Context, n Notification) error {
	if !d.Enabled() {
		d.log.Info("mail disabled, skipping notification",
			"template", n.Template,
			"application_id", n.Payload.ApplicationID,
		)
		return nil
	}

	templateID, ok := d.cfg.Templates[n.Template]
	if !ok || templateID == "" {
		return fmt.Errorf("notify: no template configured for %q", n.Template)
	}

	body, err := json.Marshal(sendRequest{
		ServiceID:  d.cfg.ServiceID,
		TemplateID: templateID,
		UserID:     d.cfg.PublicKey,
		TemplateParams: map[string]any{
			"to_email":       n.Recipient,
			"to_name":        n.Payload.Name,
			"application_id": n.Payload.ApplicationID,
			"check_in":       n.Payload.CheckIn,
			"status":         n.Payload.Status,
			"reason":         n.Payload.Reason,
		},
	})
	if err != nil {
		return fmt.Errorf("notify: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", n.Template, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("notify: send %s: mail service returned %d: %s", n.Template, resp.StatusCode, bytes.TrimSpace(msg))
	}

	d.log.Info("notification sent",
		"template", n.Template,
		"application_id", n.Payload.ApplicationID,
	)
	return nil
}

// FromEvent builds the applicant notification for a booking event.
func FromEvent(ev events.Event) Notification {
	return Notification{
		Recipient: ev.Email,
		Template:  Template(ev.Type),
		Payload: Payload{
			Name:          ev.Name,
			ApplicationID: ev.ApplicationID,
			CheckIn:       ev.CheckIn.String(),
			Status:        string(ev.Status),
			Reason:        ev.Reason,
		},
	}
}

// Handler turns booking events into emails. Send failures are logged and
// swallowed here so that nothing upstream treats them as a booking failure.
func Handler(s Sender, log *slog.Logger) events.Handler {
	return func(ctx context.Context, ev events.Event) error {
		if ev.Email == "" {
			log.Warn("booking event without recipient", "application_id", ev.ApplicationID)
			return nil
		}
		if err := s.Send(ctx, FromEvent(ev)); err != nil {
			log.Error("notification failed",
				"type", ev.Type,
				"application_id", ev.ApplicationID,
				"error", err,
			)
		}
		return nil
	}
}
