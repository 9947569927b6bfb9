package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eursukkul/guesthouse-booking/internal/auth"
	"github.com/Eursukkul/guesthouse-booking/internal/dto"
	"github.com/Eursukkul/guesthouse-booking/internal/feed"
	"github.com/Eursukkul/guesthouse-booking/internal/middleware"
	"github.com/Eursukkul/guesthouse-booking/internal/models"
	"github.com/Eursukkul/guesthouse-booking/internal/service"
)

// --- Mock BookingService ---

type mockBookingService struct {
	submitFn     func(ctx context.Context, in service.SubmitInput) (*models.Booking, error)
	transitionFn func(ctx context.Context, id string, to models.BookingStatus, reason string) (*models.Booking, error)
	cancelFn     func(ctx context.Context, id, email string) (*models.StatusLookup, error)
	lookupFn     func(ctx context.Context, id string) (*models.StatusLookup, error)
	getFn        func(ctx context.Context, id string) (*models.Booking, error)
	listFn       func(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error)
}

func (m *mockBookingService) Submit(ctx context.Context, in service.SubmitInput) (*models.Booking, error) {
	return m.submitFn(ctx, in)
}
func (m *mockBookingService) Transition(ctx context.Context, id string, to models.BookingStatus, reason string) (*models.Booking, error) {
	return m.transitionFn(ctx, id, to, reason)
}
func (m *mockBookingService) Cancel(ctx context.Context, id, email string) (*models.StatusLookup, error) {
	return m.cancelFn(ctx, id, email)
}
func (m *mockBookingService) Lookup(ctx context.Context, id string) (*models.StatusLookup, error) {
	return m.lookupFn(ctx, id)
}
func (m *mockBookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	return m.getFn(ctx, id)
}
func (m *mockBookingService) List(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error) {
	return m.listFn(ctx, status)
}

// --- Helpers ---

const (
	adminEmail    = "warden@guesthouse.example"
	adminPassword = "correct horse"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var dashboardOrigins = []string{"http://localhost:5173"}

func newProvider(t *testing.T) *auth.StaticProvider {
	t.Helper()
	hash, err := auth.HashPassword(adminPassword)
	require.NoError(t, err)
	p, err := auth.NewStaticProvider(adminEmail, hash, time.Hour)
	require.NoError(t, err)
	return p
}

func newServer(svc *mockBookingService, p auth.Provider) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	NewBookingHandler(svc).RegisterRoutes(e)
	NewAdminHandler(svc, p, feed.NewHub(svc, discard), dashboardOrigins, discard).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, method, target, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/v1/admin/login",
		`{"email":"`+adminEmail+`","password":"`+adminPassword+`"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Message
}

func sampleBooking(id string, status models.BookingStatus) models.Booking {
	return models.Booking{
		ApplicationID: id,
		Name:          "Jane Doe",
		Email:         "jane@university.example",
		Phone:         "0812345678",
		Address:       "12 Campus Road",
		CheckIn:       models.NewDate(2025, time.June, 1),
		CheckOut:      models.NewDate(2025, time.June, 3),
		GuestCount:    2,
		Purpose:       models.PurposeAcademic,
		Status:        status,
		SubmittedAt:   time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC),
		UpdatedAt:     time.Date(2025, time.May, 20, 9, 0, 0, 0, time.UTC),
	}
}

const validBody = `{
	"name":"Jane Doe","email":"jane@university.example","phone":"0812345678",
	"address":"12 Campus Road","check_in":"2025-06-01","check_out":"2025-06-03",
	"guest_count":2,"purpose":"academic"
}`

// --- Public routes ---

func TestCreateBooking_Success(t *testing.T) {
	var got service.SubmitInput
	svc := &mockBookingService{
		submitFn: func(ctx context.Context, in service.SubmitInput) (*models.Booking, error) {
			got = in
			b := sampleBooking("HPU-1A2B-XY9Z0", models.StatusPending)
			return &b, nil
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodPost, "/api/v1/bookings", validBody, "")

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp dto.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "HPU-1A2B-XY9Z0", resp.ApplicationID)
	assert.Equal(t, models.StatusPending, resp.Status)

	assert.Equal(t, models.NewDate(2025, time.June, 1), got.CheckIn)
	assert.Equal(t, models.NewDate(2025, time.June, 3), got.CheckOut)
	assert.Equal(t, models.PurposeAcademic, got.Purpose)
	assert.Equal(t, 2, got.GuestCount)
}

func TestCreateBooking_ShapeValidation(t *testing.T) {
	svc := &mockBookingService{
		submitFn: func(context.Context, service.SubmitInput) (*models.Booking, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodPost, "/api/v1/bookings",
		`{"email":"not-an-email","check_in":"2025-06-01","check_out":"2025-06-03","guest_count":2}`, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	msg := message(t, rec)
	assert.Contains(t, msg, "name is required")
	assert.Contains(t, msg, "email is not a valid address")
}

func TestCreateBooking_ServiceValidation(t *testing.T) {
	svc := &mockBookingService{
		submitFn: func(context.Context, service.SubmitInput) (*models.Booking, error) {
			return nil, fmtValidation("check_out must be after check_in")
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodPost, "/api/v1/bookings", validBody, "")

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "check_out must be after check_in", message(t, rec))
}

func TestCreateBooking_StoreUnavailable(t *testing.T) {
	svc := &mockBookingService{
		submitFn: func(context.Context, service.SubmitInput) (*models.Booking, error) {
			return nil, wrap("service.BookingService.Submit", models.ErrPersistence)
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodPost, "/api/v1/bookings", validBody, "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateBooking_InvalidBody(t *testing.T) {
	rec := do(newServer(&mockBookingService{}, newProvider(t)), http.MethodPost, "/api/v1/bookings", `{"name":`, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetStatus_ExposesOnlyPublicFields(t *testing.T) {
	svc := &mockBookingService{
		lookupFn: func(ctx context.Context, id string) (*models.StatusLookup, error) {
			b := sampleBooking(id, models.StatusApproved)
			l := b.Lookup()
			return &l, nil
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodGet, "/api/v1/bookings/status/HPU-1A2B-XY9Z0", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, map[string]any{
		"application_id": "HPU-1A2B-XY9Z0",
		"status":         "Approved",
		"check_in":       "2025-06-01",
	}, raw)
}

func TestGetStatus_NotFound(t *testing.T) {
	svc := &mockBookingService{
		lookupFn: func(context.Context, string) (*models.StatusLookup, error) {
			return nil, wrap("service.BookingService.Lookup", models.ErrNotFound)
		},
	}

	rec := do(newServer(svc, newProvider(t)), http.MethodGet, "/api/v1/bookings/status/HPU-0000-00000", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no booking found", message(t, rec))
}

func TestCancelBooking(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"cancelled", `{"email":"jane@university.example"}`, nil, http.StatusOK},
		{"unknown or wrong email", `{"email":"jane@university.example"}`, models.ErrNotFound, http.StatusNotFound},
		{"already decided", `{"email":"jane@university.example"}`, models.ErrInvalidTransition, http.StatusConflict},
		{"missing email", `{}`, nil, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				cancelFn: func(ctx context.Context, id, email string) (*models.StatusLookup, error) {
					if tt.err != nil {
						return nil, wrap("service.BookingService.Cancel", tt.err)
					}
					b := sampleBooking(id, models.StatusCancelled)
					l := b.Lookup()
					return &l, nil
				},
			}

			rec := do(newServer(svc, newProvider(t)), http.MethodPost, "/api/v1/bookings/HPU-1A2B-XY9Z0/cancel", tt.body, "")

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantCode == http.StatusOK {
				var resp dto.StatusResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, models.StatusCancelled, resp.Status)
			}
		})
	}
}

// --- Admin routes ---

func TestAdminRoutes_RequireSession(t *testing.T) {
	e := newServer(&mockBookingService{}, newProvider(t))

	for _, r := range []struct{ method, target string }{
		{http.MethodGet, "/api/v1/admin/bookings"},
		{http.MethodGet, "/api/v1/admin/bookings/HPU-1A2B-XY9Z0"},
		{http.MethodPut, "/api/v1/admin/bookings/HPU-1A2B-XY9Z0/status"},
		{http.MethodGet, "/api/v1/admin/bookings/feed"},
		{http.MethodPost, "/api/v1/admin/logout"},
	} {
		rec := do(e, r.method, r.target, "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.target)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	e := newServer(&mockBookingService{}, newProvider(t))

	rec := do(e, http.MethodPost, "/api/v1/admin/login", `{"email":"`+adminEmail+`","password":"wrong"}`, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	svc := &mockBookingService{
		listFn: func(context.Context, *models.BookingStatus) ([]models.Booking, error) { return nil, nil },
	}
	e := newServer(svc, newProvider(t))
	token := login(t, e)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/api/v1/admin/bookings", "", token).Code)
	assert.Equal(t, http.StatusNoContent, do(e, http.MethodPost, "/api/v1/admin/logout", "", token).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/api/v1/admin/bookings", "", token).Code)
}

func TestListBookings_Filter(t *testing.T) {
	var gotFilter *models.BookingStatus
	svc := &mockBookingService{
		listFn: func(ctx context.Context, status *models.BookingStatus) ([]models.Booking, error) {
			gotFilter = status
			return []models.Booking{
				sampleBooking("HPU-0002-BBBBB", models.StatusPending),
				sampleBooking("HPU-0001-AAAAA", models.StatusPending),
			}, nil
		},
	}
	e := newServer(svc, newProvider(t))
	token := login(t, e)

	rec := do(e, http.MethodGet, "/api/v1/admin/bookings?status=Pending", "", token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotFilter)
	assert.Equal(t, models.StatusPending, *gotFilter)
	var resp []dto.BookingResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.Equal(t, "HPU-0002-BBBBB", resp[0].ApplicationID)
	assert.Equal(t, "jane@university.example", resp[0].Email)
	assert.Equal(t, 2, resp[0].Nights)
}

func TestListBookings_UnknownFilter(t *testing.T) {
	e := newServer(&mockBookingService{}, newProvider(t))
	token := login(t, e)

	rec := do(e, http.MethodGet, "/api/v1/admin/bookings?status=Archived", "", token)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBooking_NotFound(t *testing.T) {
	svc := &mockBookingService{
		getFn: func(context.Context, string) (*models.Booking, error) {
			return nil, wrap("service.BookingService.Get", models.ErrNotFound)
		},
	}
	e := newServer(svc, newProvider(t))
	token := login(t, e)

	rec := do(e, http.MethodGet, "/api/v1/admin/bookings/HPU-0000-00000", "", token)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{"approve", `{"status":"Approved"}`, nil, http.StatusOK},
		{"reject with reason", `{"status":"Rejected","reason":"fully booked"}`, nil, http.StatusOK},
		{"reject without reason", `{"status":"Rejected"}`, fmtValidation("a reason is required to reject a booking"), http.StatusUnprocessableEntity},
		{"pending is not a review outcome", `{"status":"Pending"}`, nil, http.StatusUnprocessableEntity},
		{"already decided", `{"status":"Approved"}`, models.ErrInvalidTransition, http.StatusConflict},
		{"unknown id", `{"status":"Approved"}`, models.ErrNotFound, http.StatusNotFound},
		{"store down", `{"status":"Approved"}`, models.ErrPersistence, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				transitionFn: func(ctx context.Context, id string, to models.BookingStatus, reason string) (*models.Booking, error) {
					if tt.err != nil {
						return nil, wrap("service.BookingService.Transition", tt.err)
					}
					b := sampleBooking(id, to)
					if reason != "" {
						b.RejectionReason = &reason
					}
					return &b, nil
				},
			}
			e := newServer(svc, newProvider(t))
			token := login(t, e)

			rec := do(e, http.MethodPut, "/api/v1/admin/bookings/HPU-1A2B-XY9Z0/status", tt.body, token)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestFeed_StreamsSnapshots(t *testing.T) {
	var mu sync.Mutex
	bookings := []models.Booking{sampleBooking("HPU-0001-AAAAA", models.StatusPending)}
	svc := &mockBookingService{
		listFn: func(context.Context, *models.BookingStatus) ([]models.Booking, error) {
			mu.Lock()
			defer mu.Unlock()
			return slices.Clone(bookings), nil
		},
	}
	p := newProvider(t)
	hub := feed.NewHub(svc, discard)
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Validator = middleware.NewValidator()
	NewAdminHandler(svc, p, hub, dashboardOrigins, discard).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	s, err := p.Authenticate(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/bookings/feed?token=" + s.Token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var first feedMessage
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, uint64(1), first.Rev)
	require.Len(t, first.Bookings, 1)

	mu.Lock()
	bookings = append([]models.Booking{sampleBooking("HPU-0002-BBBBB", models.StatusPending)}, bookings...)
	mu.Unlock()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Refresh(context.Background()))

	var second feedMessage
	require.NoError(t, ws.ReadJSON(&second))
	assert.Equal(t, uint64(2), second.Rev)
	require.Len(t, second.Bookings, 2)
	assert.Equal(t, "HPU-0002-BBBBB", second.Bookings[0].ApplicationID)
}

func TestFeed_RejectsForeignOrigin(t *testing.T) {
	svc := &mockBookingService{
		listFn: func(context.Context, *models.BookingStatus) ([]models.Booking, error) { return nil, nil },
	}
	p := newProvider(t)
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler
	NewAdminHandler(svc, p, feed.NewHub(svc, discard), dashboardOrigins, discard).RegisterRoutes(e)
	srv := httptest.NewServer(e)
	defer srv.Close()

	s, err := p.Authenticate(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/admin/bookings/feed?token=" + s.Token

	ws, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, ws)

	ws, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	ws.Close()
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://guesthouse.example"})

	tests := []struct {
		name   string
		origin string
		want   bool
	}{
		{"no origin header", "", true},
		{"allowed", "https://guesthouse.example", true},
		{"allowed, other case", "https://GuestHouse.example", true},
		{"foreign", "https://evil.example", false},
		{"scheme mismatch", "http://guesthouse.example", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/admin/bookings/feed", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}

	assert.True(t, originChecker([]string{"*"})(func() *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Origin", "https://anywhere.example")
		return r
	}()))
}
