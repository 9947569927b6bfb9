package models

import (
	"fmt"
	"time"
)

type Purpose string

const (
	PurposeOfficial Purpose = "official"
	PurposeAcademic Purpose = "academic"
	PurposePersonal Purpose = "personal"
	PurposeOther    Purpose = "other"
)

func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeOfficial, PurposeAcademic, PurposePersonal, PurposeOther:
		return Purpose(s), nil
	default:
		return "", fmt.Errorf("%w: unknown purpose %q", ErrValidation, s)
	}
}

const (
	MinGuests = 1
	MaxGuests = 10
)

// Booking is the private, full-detail record. Only Status, RejectionReason
// and UpdatedAt change after submission.
type Booking struct {
	ApplicationID   string        `gorm:"primaryKey;type:varchar(32)" json:"application_id"`
	Name            string        `gorm:"not null" json:"name"`
	Email           string        `gorm:"not null" json:"email"`
	Phone           string        `gorm:"not null" json:"phone"`
	Address         string        `gorm:"not null" json:"address"`
	CheckIn         Date          `gorm:"type:date;not null" json:"check_in"`
	CheckOut        Date          `gorm:"type:date;not null" json:"check_out"`
	GuestCount      int           `gorm:"not null" json:"guest_count"`
	Purpose         Purpose       `gorm:"type:varchar(20);not null" json:"purpose"`
	Status          BookingStatus `gorm:"type:varchar(20);not null;default:'Pending'" json:"status"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time     `gorm:"not null" json:"submitted_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// StatusLookup is the public projection of a Booking. It carries nothing
// that identifies the applicant.
type StatusLookup struct {
	ApplicationID string        `gorm:"primaryKey;type:varchar(32)" json:"application_id"`
	Status        BookingStatus `gorm:"type:varchar(20);not null" json:"status"`
	CheckIn       Date          `gorm:"type:date;not null" json:"check_in"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

func (StatusLookup) TableName() string { return "status_lookups" }

// Lookup derives the public record paired with b.
func (b *Booking) Lookup() StatusLookup {
	return StatusLookup{
		ApplicationID: b.ApplicationID,
		Status:        b.Status,
		CheckIn:       b.CheckIn,
		UpdatedAt:     b.UpdatedAt,
	}
}

func (b *Booking) Nights() int {
	return b.CheckIn.Days(b.CheckOut)
}
