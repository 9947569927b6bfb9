package models

import "fmt"

type BookingStatus string

const (
	StatusPending   BookingStatus = "Pending"
	StatusApproved  BookingStatus = "Approved"
	StatusRejected  BookingStatus = "Rejected"
	StatusCancelled BookingStatus = "Cancelled"
)

// ParseStatus accepts only the closed set of statuses.
func ParseStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return BookingStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// Pending is the only non-terminal status; nothing returns to it.
var allowedTransitions = map[BookingStatus]map[BookingStatus]bool{
	StatusPending:   {StatusApproved: true, StatusRejected: true, StatusCancelled: true},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	return allowedTransitions[s][to]
}

func (s BookingStatus) IsTerminal() bool {
	return s != StatusPending
}

// IsReviewOutcome reports whether s may be set by an administrator.
func (s BookingStatus) IsReviewOutcome() bool {
	return s == StatusApproved || s == StatusRejected
}
