package service

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

// SubmitInput carries the applicant and stay fields of a new booking.
type SubmitInput struct {
	Name       string
	Email      string
	Phone      string
	Address    string
	CheckIn    models.Date
	CheckOut   models.Date
	GuestCount int
	Purpose    models.Purpose
}

// normalize trims every free-text field and defaults an empty purpose.
func (in SubmitInput) normalize() SubmitInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Address = strings.TrimSpace(in.Address)
	if in.Purpose == "" {
		in.Purpose = models.PurposeOther
	}
	return in
}

// Validate reports every problem at once so the submitter can fix the form
// in one pass.
func (in SubmitInput) Validate() error {
	var problems []string
	for _, f := range []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"phone", in.Phone},
		{"address", in.Address},
	} {
		if f.value == "" {
			problems = append(problems, f.name+" is required")
		}
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			problems = append(problems, "email is not a valid address")
		}
	}
	switch {
	case in.CheckIn.IsZero():
		problems = append(problems, "check_in is required")
	case in.CheckOut.IsZero():
		problems = append(problems, "check_out is required")
	case !in.CheckOut.After(in.CheckIn):
		problems = append(problems, "check_out must be after check_in")
	}
	if in.GuestCount < models.MinGuests || in.GuestCount > models.MaxGuests {
		problems = append(problems, fmt.Sprintf("guest_count must be between %d and %d", models.MinGuests, models.MaxGuests))
	}
	if _, err := models.ParsePurpose(string(in.Purpose)); err != nil {
		problems = append(problems, fmt.Sprintf("purpose %q is not recognised", in.Purpose))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", models.ErrValidation, strings.Join(problems, "; "))
	}
	return nil
}

func (in SubmitInput) toBooking(applicationID string, now time.Time) *models.Booking {
	return &models.Booking{
		ApplicationID: applicationID,
		Name:          in.Name,
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		CheckIn:       in.CheckIn,
		CheckOut:      in.CheckOut,
		GuestCount:    in.GuestCount,
		Purpose:       in.Purpose,
		Status:        models.StatusPending,
		SubmittedAt:   now,
		UpdatedAt:     now,
	}
}

// validateReview checks the admin-supplied target status and reason.
// A reason is required for a rejection and refused otherwise.
func validateReview(to models.BookingStatus, reason string) error {
	if !to.IsReviewOutcome() {
		return fmt.Errorf("%w: status must be %s or %s", models.ErrValidation, models.StatusApproved, models.StatusRejected)
	}
	if to == models.StatusRejected && reason == "" {
		return fmt.Errorf("%w: a reason is required to reject a booking", models.ErrValidation)
	}
	if to != models.StatusRejected && reason != "" {
		return fmt.Errorf("%w: a reason is only allowed when rejecting", models.ErrValidation)
	}
	return nil
}
