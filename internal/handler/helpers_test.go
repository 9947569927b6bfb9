package handler

import (
	"fmt"

	"github.com/Eursukkul/guesthouse-booking/internal/models"
)

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

func fmtValidation(problem string) error {
	return fmt.Errorf("service.BookingService.Submit: %w: %s", models.ErrValidation, problem)
}
