package transport

import (
	"net/http"

	"barberflow/internal/domain"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateBarberRequest represents the barber creation payload
type CreateBarberRequest struct {
	Name     string              `json:"name" validate:"required"`
	Role     string              `json:"role" validate:"required,oneof=owner admin barber"`
	Schedule domain.WeekSchedule `json:"schedule" validate:"required"`
}

// UpdateScheduleRequest represents the weekly schedule payload
type UpdateScheduleRequest struct {
	Schedule domain.WeekSchedule `json:"schedule" validate:"required"`
}

// BarberHandler handles HTTP requests for barber management
type BarberHandler struct {
	barbers service.BarberService
	logger  *zap.Logger
}

// NewBarberHandler creates a new BarberHandler
func NewBarberHandler(barbers service.BarberService, logger *zap.Logger) *BarberHandler {
	return &BarberHandler{
		barbers: barbers,
		logger:  logger,
	}
}

// RegisterRoutes registers all barber routes
func (h *BarberHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/barbers", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Post("/", h.Create)
		r.Put("/{id}/schedule", h.UpdateSchedule)
	})
}

// Create handles barber creation
func (h *BarberHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBarberRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	barber, err := h.barbers.Create(r.Context(), actorFromRequest(r), req.Name, req.Role, req.Schedule)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusCreated, barber)
}

// Get returns a single barber
func (h *BarberHandler) Get(w http.ResponseWriter, r *http.Request) {
	barberID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid barber id")
		return
	}

	barber, err := h.barbers.Get(r.Context(), barberID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, barber)
}

// List returns all barbers
func (h *BarberHandler) List(w http.ResponseWriter, r *http.Request) {
	barbers, err := h.barbers.List(r.Context())
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, barbers)
}

// UpdateSchedule replaces a barber's weekly schedule
func (h *BarberHandler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	barberID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid barber id")
		return
	}

	var req UpdateScheduleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	barber, err := h.barbers.UpdateSchedule(r.Context(), actorFromRequest(r), barberID, req.Schedule)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Barber schedule updated", zap.String("barber_id", barberID.String()))
	respondSuccess(w, http.StatusOK, barber)
}
