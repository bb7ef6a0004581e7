package transport

import (
	"net/http"
	"time"

	"barberflow/internal/domain"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateBookingRequest represents the booking creation payload
type CreateBookingRequest struct {
	BarberID      string `json:"barber_id" validate:"required,uuid"`
	SlotStart     string `json:"slot_start" validate:"required"`
	ServiceType   string `json:"service_type" validate:"required"`
	PaymentMethod string `json:"payment_method"`
	Customer      struct {
		FirstName string `json:"first_name" validate:"required"`
		LastName  string `json:"last_name"`
		Whatsapp  string `json:"whatsapp" validate:"required,min=8"`
	} `json:"customer" validate:"required"`
}

// RescheduleRequest represents the reschedule payload
type RescheduleRequest struct {
	NewSlotStart string `json:"new_slot_start" validate:"required"`
	// When true the original booking is cancelled and a linked replacement
	// is created instead of moving the booking in place.
	AsNewBooking bool `json:"as_new_booking"`
}

// UpdateStatusRequest represents the status transition payload
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed completed cancelled no_show"`
}

// BookingHandler handles HTTP requests for booking operations
type BookingHandler struct {
	bookings service.BookingService
	loc      *time.Location
	logger   *zap.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings service.BookingService, loc *time.Location, logger *zap.Logger) *BookingHandler {
	return &BookingHandler{
		bookings: bookings,
		loc:      loc,
		logger:   logger,
	}
}

// RegisterRoutes registers all booking routes
func (h *BookingHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/reschedule", h.Reschedule)
		r.Patch("/{id}/status", h.UpdateStatus)
		r.Get("/agenda/{barberID}/{date}", h.DayAgenda)
	})
}

// Create handles booking creation
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Booking validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := h.toCreateInput(req)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	booking, err := h.bookings.Create(r.Context(), actorFromRequest(r), input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Booking created", zap.String("booking_id", booking.ID.String()))
	respondSuccess(w, http.StatusCreated, booking)
}

// Cancel handles booking cancellation
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := h.bookings.Cancel(r.Context(), actorFromRequest(r), bookingID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Booking cancelled", zap.String("booking_id", bookingID.String()))
	respondSuccess(w, http.StatusOK, booking)
}

// Reschedule handles both reschedule models
func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req RescheduleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	newStart, err := h.parseSlotTime(req.NewSlotStart)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	actor := actorFromRequest(r)
	var booking *domain.Booking
	if req.AsNewBooking {
		booking, err = h.bookings.RebookAsNew(r.Context(), actor, bookingID, newStart)
	} else {
		booking, err = h.bookings.Reschedule(r.Context(), actor, bookingID, newStart)
	}
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Booking rescheduled",
		zap.String("booking_id", bookingID.String()),
		zap.Bool("as_new", req.AsNewBooking),
	)
	respondSuccess(w, http.StatusOK, booking)
}

// UpdateStatus handles booking status transitions
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req UpdateStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	booking, err := h.bookings.UpdateStatus(r.Context(), actorFromRequest(r), bookingID, domain.BookingStatus(req.Status))
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, booking)
}

// DayAgenda returns every occupied slot of a barber's day
func (h *BookingHandler) DayAgenda(w http.ResponseWriter, r *http.Request) {
	barberID, err := uuidParam(r, "barberID")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid barber id")
		return
	}
	dateKey := chi.URLParam(r, "date")

	slots, err := h.bookings.DayAgenda(r.Context(), actorFromRequest(r), barberID, dateKey)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, slots)
}

func (h *BookingHandler) toCreateInput(req CreateBookingRequest) (service.CreateBookingInput, error) {
	barberID, err := uuidFromString(req.BarberID, "barber_id")
	if err != nil {
		return service.CreateBookingInput{}, err
	}
	slotStart, err := h.parseSlotTime(req.SlotStart)
	if err != nil {
		return service.CreateBookingInput{}, err
	}
	return service.CreateBookingInput{
		BarberID:      barberID,
		SlotStart:     slotStart,
		ServiceType:   req.ServiceType,
		PaymentMethod: req.PaymentMethod,
		Customer: service.CustomerInput{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Whatsapp:  req.Customer.Whatsapp,
		},
	}, nil
}

// parseSlotTime accepts RFC 3339 or a local wall-clock timestamp.
func (h *BookingHandler) parseSlotTime(value string) (time.Time, error) {
	return parseLocalTime(value, h.loc)
}
