package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubBookingService records the last call and returns canned results.
type stubBookingService struct {
	booking   *domain.Booking
	slots     []*domain.Slot
	err       error
	lastActor service.Actor
	lastInput service.CreateBookingInput
	rebooked  bool
}

func (s *stubBookingService) Create(ctx context.Context, actor service.Actor, input service.CreateBookingInput) (*domain.Booking, error) {
	s.lastActor = actor
	s.lastInput = input
	return s.booking, s.err
}

func (s *stubBookingService) Cancel(ctx context.Context, actor service.Actor, bookingID uuid.UUID) (*domain.Booking, error) {
	s.lastActor = actor
	return s.booking, s.err
}

func (s *stubBookingService) Reschedule(ctx context.Context, actor service.Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error) {
	s.rebooked = false
	return s.booking, s.err
}

func (s *stubBookingService) RebookAsNew(ctx context.Context, actor service.Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error) {
	s.rebooked = true
	return s.booking, s.err
}

func (s *stubBookingService) UpdateStatus(ctx context.Context, actor service.Actor, bookingID uuid.UUID, status domain.BookingStatus) (*domain.Booking, error) {
	return s.booking, s.err
}

func (s *stubBookingService) DayAgenda(ctx context.Context, actor service.Actor, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error) {
	return s.slots, s.err
}

// withIdentity injects the claims the auth middleware would have extracted.
func withIdentity(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), middleware.UserIDKey, "user-1")
			ctx = context.WithValue(ctx, middleware.UserRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newBookingRouter(t *testing.T, svc service.BookingService) http.Handler {
	t.Helper()
	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	r := chi.NewRouter()
	handler := NewBookingHandler(svc, loc, zap.NewNop())
	handler.RegisterRoutes(r, withIdentity(domain.RoleOwner))
	return r
}

func validCreateBody(barberID uuid.UUID) []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"barber_id":    barberID.String(),
		"slot_start":   "2026-03-10T10:00",
		"service_type": "haircut",
		"customer": map[string]string{
			"first_name": "João",
			"whatsapp":   "+5511999990001",
		},
	})
	return body
}

func TestBookingHandlerCreate(t *testing.T) {
	barberID := uuid.New()
	stub := &stubBookingService{booking: &domain.Booking{
		ID:       uuid.New(),
		BarberID: barberID,
		Status:   domain.BookingStatusBooked,
	}}
	router := newBookingRouter(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(validCreateBody(barberID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp SuccessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	assert.Equal(t, "user-1", stub.lastActor.UserID)
	assert.Equal(t, domain.RoleOwner, stub.lastActor.Role)
	assert.Equal(t, barberID, stub.lastInput.BarberID)
	assert.Equal(t, "haircut", stub.lastInput.ServiceType)

	// The wall-clock timestamp lands in the business timezone.
	loc, _ := time.LoadLocation("America/Sao_Paulo")
	want := time.Date(2026, 3, 10, 10, 0, 0, 0, loc)
	assert.True(t, stub.lastInput.SlotStart.Equal(want))
}

func TestBookingHandlerCreateValidation(t *testing.T) {
	stub := &stubBookingService{}
	router := newBookingRouter(t, stub)

	// Missing customer whatsapp.
	body, _ := json.Marshal(map[string]interface{}{
		"barber_id":    uuid.NewString(),
		"slot_start":   "2026-03-10T10:00",
		"service_type": "haircut",
		"customer":     map[string]string{"first_name": "João"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Malformed barber id passes struct validation off to the handler.
	body, _ = json.Marshal(map[string]interface{}{
		"barber_id":    "not-a-uuid",
		"slot_start":   "2026-03-10T10:00",
		"service_type": "haircut",
		"customer": map[string]string{
			"first_name": "João",
			"whatsapp":   "+5511999990001",
		},
	})
	req = httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerErrorEnvelope(t *testing.T) {
	barberID := uuid.New()
	stub := &stubBookingService{err: apperr.AlreadyExists("time slot at 10/03/2026 10:00 is already booked")}
	router := newBookingRouter(t, stub)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings/", bytes.NewReader(validCreateBody(barberID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(apperr.CodeAlreadyExists), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "already booked")
}

func TestBookingHandlerRescheduleDispatch(t *testing.T) {
	stub := &stubBookingService{booking: &domain.Booking{ID: uuid.New()}}
	router := newBookingRouter(t, stub)
	bookingID := uuid.New()

	body, _ := json.Marshal(map[string]interface{}{
		"new_slot_start": "2026-03-10T15:00",
		"as_new_booking": true,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/bookings/"+bookingID.String()+"/reschedule", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stub.rebooked)

	body, _ = json.Marshal(map[string]interface{}{
		"new_slot_start": "2026-03-10T15:00",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/bookings/"+bookingID.String()+"/reschedule", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, stub.rebooked)
}

func TestBookingHandlerUpdateStatusRejectsUnknown(t *testing.T) {
	stub := &stubBookingService{booking: &domain.Booking{ID: uuid.New()}}
	router := newBookingRouter(t, stub)

	body, _ := json.Marshal(map[string]string{"status": "archived"})
	req := httptest.NewRequest(http.MethodPatch, "/api/bookings/"+uuid.NewString()+"/status", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBookingHandlerDayAgenda(t *testing.T) {
	stub := &stubBookingService{slots: []*domain.Slot{
		{ID: "20260310_0900", Kind: domain.SlotKindBooking},
		{ID: "20260310_1400", Kind: domain.SlotKindBlock},
	}}
	router := newBookingRouter(t, stub)

	req := httptest.NewRequest(http.MethodGet, "/api/bookings/agenda/"+uuid.NewString()+"/2026-03-10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success bool          `json:"success"`
		Data    []domain.Slot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "20260310_0900", resp.Data[0].ID)

	req = httptest.NewRequest(http.MethodGet, "/api/bookings/agenda/not-a-uuid/2026-03-10", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
