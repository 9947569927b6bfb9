package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/guesthouse-booking/internal/dto"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"github.com/Eursukkul/guesthouse-booking/internal/service"
)

const msgNoBooking = "no booking found"

// BookingHandler serves the requester-facing routes. Nothing here returns
// the private booking record.
type BookingHandler struct {
	svc service.BookingService
}

func NewBookingHandler(svc service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

func (h *BookingHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/bookings")
	g.POST("", h.CreateBooking)
	g.GET("/status/:applicationId", h.GetStatus)
	g.POST("/:applicationId/cancel", h.CancelBooking)
}

func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req dto.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	in, err := toSubmitInput(req)
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	booking, err := h.svc.Submit(c.Request().Context(), in)
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	return c.JSON(http.StatusCreated, dto.ToSubmitResponse(booking))
}

func (h *BookingHandler) GetStatus(c echo.Context) error {
	lookup, err := h.svc.Lookup(c.Request().Context(), c.Param("applicationId"))
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	return c.JSON(http.StatusOK, dto.ToStatusResponse(lookup))
}

func (h *BookingHandler) CancelBooking(c echo.Context) error {
	var req dto.CancelBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	lookup, err := h.svc.Cancel(c.Request().Context(), c.Param("applicationId"), req.Email)
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	return c.JSON(http.StatusOK, dto.ToStatusResponse(lookup))
}

func toSubmitInput(req dto.CreateBookingRequest) (service.SubmitInput, error) {
	checkIn, err := models.ParseDate(req.CheckIn)
	if err != nil {
		return service.SubmitInput{}, err
	}
	checkOut, err := models.ParseDate(req.CheckOut)
	if err != nil {
		return service.SubmitInput{}, err
	}
	return service.SubmitInput{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		GuestCount: req.GuestCount,
		Purpose:    models.Purpose(req.Purpose),
	}, nil
}
