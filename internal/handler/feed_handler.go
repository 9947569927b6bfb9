package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/Eursukkul/guesthouse-booking/internal/dto"
	"github.com/Eursukkul/guesthouse-booking/internal/feed"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
)

func newUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

// originChecker admits requests without an Origin header (non-browser
// clients) and browser requests from one of the allowed origins. Browsers do
// not apply CORS to websocket upgrades, so this is the only origin gate.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

type feedMessage struct {
	Rev      uint64                `json:"rev"`
	At       time.Time             `json:"at"`
	Bookings []dto.BookingResponse `json:"bookings"`
}

func toFeedMessage(s feed.Snapshot) feedMessage {
	return feedMessage{Rev: s.Rev, At: s.At, Bookings: dto.ToBookingResponses(s.Bookings)}
}

// Feed upgrades to a websocket and streams full booking snapshots until the
// client goes away. Client frames are read only to notice the close.
func (h *AdminHandler) Feed(c echo.Context) error {
	sub, err := h.hub.Subscribe(c.Request().Context())
	if err != nil {
		return httpError(err, msgNoBooking)
	}
	defer sub.Close()

	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("feed upgrade failed", "error", err)
		return nil
	}
	defer ws.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		ws.SetReadLimit(512)
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return nil
		case snap := <-sub.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(toFeedMessage(snap)); err != nil {
				h.logWriteError(err)
				return nil
			}
		case <-ping.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				h.logWriteError(err)
				return nil
			}
		}
	}
}

func (h *AdminHandler) logWriteError(err error) {
	if errors.Is(err, websocket.ErrCloseSent) || websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
		return
	}
	h.log.Warn("feed write failed", "error", err)
}
