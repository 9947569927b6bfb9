package dto

import (
	"time"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

type SubmitResponse struct {
	ApplicationID string               `json:"application_id"`
	Status        models.BookingStatus `json:"status"`
	SubmittedAt   time.Time            `json:"submitted_at"`
}

// StatusResponse is all a requester learns from the public lookup.
type StatusResponse struct {
	ApplicationID string               `json:"application_id"`
	Status        models.BookingStatus `json:"status"`
	CheckIn       models.Date          `json:"check_in"`
}

type BookingResponse struct {
	ApplicationID   string               `json:"application_id"`
	Name            string               `json:"name"`
	Email           string               `json:"email"`
	Phone           string               `json:"phone"`
	Address         string               `json:"address"`
	CheckIn         models.Date          `json:"check_in"`
	CheckOut        models.Date          `json:"check_out"`
	Nights          int                  `json:"nights"`
	GuestCount      int                  `json:"guest_count"`
	Purpose         models.Purpose       `json:"purpose"`
	Status          models.BookingStatus `json:"status"`
	RejectionReason *string              `json:"rejection_reason,omitempty"`
	SubmittedAt     time.Time            `json:"submitted_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func ToSubmitResponse(b *models.Booking) SubmitResponse {
	return SubmitResponse{
		ApplicationID: b.ApplicationID,
		Status:        b.Status,
		SubmittedAt:   b.SubmittedAt,
	}
}

func ToStatusResponse(l *models.StatusLookup) StatusResponse {
	return StatusResponse{
		ApplicationID: l.ApplicationID,
		Status:        l.Status,
		CheckIn:       l.CheckIn,
	}
}

func ToBookingResponse(b *models.Booking) BookingResponse {
	return BookingResponse{
		ApplicationID:   b.ApplicationID,
		Name:            b.Name,
		Email:           b.Email,
		Phone:           b.Phone,
		Address:         b.Address,
		CheckIn:         b.CheckIn,
		CheckOut:        b.CheckOut,
		Nights:          b.Nights(),
		GuestCount:      b.GuestCount,
		Purpose:         b.Purpose,
		Status:          b.Status,
		RejectionReason: b.RejectionReason,
		SubmittedAt:     b.SubmittedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func ToBookingResponses(bs []models.Booking) []BookingResponse {
	resp := make([]BookingResponse, len(bs))
	for i := range bs {
		resp[i] = ToBookingResponse(&bs[i])
	}
	return resp
}
