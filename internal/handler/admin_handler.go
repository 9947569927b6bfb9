package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/guesthouse-booking/internal/auth"
	"github.com/Eursukkul/guesthouse-booking/internal/dto"
	"github.com/Eursukkul/guesthouse-booking/internal/feed"
	"github.com/Eursukkul/guesthouse-booking/internal/middleware"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"github.com/Eursukkul/guesthouse-booking/internal/service"
)

// AdminHandler serves the authenticated review routes. Only login is reachable
// without a session.
type AdminHandler struct {
	svc  service.BookingService
	auth auth.Provider
	hub  *feed.Hub
	log  *slog.Logger

	upgrader *websocket.Upgrader
}

// NewAdminHandler wires the admin routes. allowedOrigins gates browser
// connections to the live feed and normally matches CORS_ORIGINS.
func NewAdminHandler(svc service.BookingService, provider auth.Provider, hub *feed.Hub, allowedOrigins []string, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		svc:      svc,
		auth:     provider,
		hub:      hub,
		log:      log,
		upgrader: newUpgrader(allowedOrigins),
	}
}

func (h *AdminHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/admin")
	g.POST("/login", h.Login)

	secured := g.Group("", middleware.RequireAdmin(h.auth))
	secured.POST("/logout", h.Logout)
	secured.GET("/bookings", h.ListBookings)
	secured.GET("/bookings/feed", h.Feed)
	secured.GET("/bookings/:applicationId", h.GetBooking)
	secured.PUT("/bookings/:applicationId/status", h.UpdateStatus)
}

func (h *AdminHandler) Login(c echo.Context) error {
	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	s, err := h.auth.Authenticate(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.log.Warn("admin login rejected", "email", req.Email, "remote_ip", c.RealIP())
		return httpError(err, "")
	}

	return c.JSON(http.StatusOK, dto.LoginResponse{Token: s.Token, ExpiresAt: s.ExpiresAt})
}

func (h *AdminHandler) Logout(c echo.Context) error {
	h.auth.Revoke(c.Request().Context(), middleware.BearerToken(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) ListBookings(c echo.Context) error {
	var status *models.BookingStatus
	if s := c.QueryParam("status"); s != "" {
		bs, err := models.ParseStatus(s)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown status filter")
		}
		status = &bs
	}

	bookings, err := h.svc.List(c.Request().Context(), status)
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponses(bookings))
}

func (h *AdminHandler) GetBooking(c echo.Context) error {
	booking, err := h.svc.Get(c.Request().Context(), c.Param("applicationId"))
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}

func (h *AdminHandler) UpdateStatus(c echo.Context) error {
	var req dto.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id := c.Param("applicationId")
	booking, err := h.svc.Transition(c.Request().Context(), id, models.BookingStatus(req.Status), req.Reason)
	if err != nil {
		return httpError(err, msgNoBooking)
	}

	s, _ := c.Get(middleware.SessionKey).(auth.Session)
	h.log.Info("booking reviewed",
		"application_id", booking.ApplicationID,
		"status", booking.Status,
		"reviewer", s.Email,
	)
	return c.JSON(http.StatusOK, dto.ToBookingResponse(booking))
}
