package transport

import (
	"net/http"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockRequest represents the calendar block payload
type BlockRequest struct {
	BarberID string `json:"barber_id" validate:"required,uuid"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
	Reason   string `json:"reason" validate:"required"`
}

// UnblockRequest represents the block removal payload
type UnblockRequest struct {
	BarberID string `json:"barber_id" validate:"required,uuid"`
	Start    string `json:"start" validate:"required"`
	End      string `json:"end" validate:"required"`
}

// BlockHandler handles HTTP requests for calendar blocking
type BlockHandler struct {
	blocking service.BlockingService
	loc      *time.Location
	logger   *zap.Logger
}

// NewBlockHandler creates a new BlockHandler
func NewBlockHandler(blocking service.BlockingService, loc *time.Location, logger *zap.Logger) *BlockHandler {
	return &BlockHandler{
		blocking: blocking,
		loc:      loc,
		logger:   logger,
	}
}

// RegisterRoutes registers all block routes
func (h *BlockHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/blocks", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Block)
		r.Delete("/", h.Unblock)
	})
}

// Block reserves every open half-hour in the requested range
func (h *BlockHandler) Block(w http.ResponseWriter, r *http.Request) {
	var req BlockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	barberID, start, end, err := h.parseRange(req.BarberID, req.Start, req.End)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	slots, err := h.blocking.Block(r.Context(), actorFromRequest(r), barberID, start, end, req.Reason)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Calendar range blocked",
		zap.String("barber_id", barberID.String()),
		zap.Int("slots", len(slots)),
	)
	respondSuccess(w, http.StatusCreated, slots)
}

// Unblock releases block-kind slots in the requested range
func (h *BlockHandler) Unblock(w http.ResponseWriter, r *http.Request) {
	var req UnblockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	barberID, start, end, err := h.parseRange(req.BarberID, req.Start, req.End)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	removed, err := h.blocking.Unblock(r.Context(), actorFromRequest(r), barberID, start, end)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]int{"removed": removed})
}

func (h *BlockHandler) parseRange(barberIDStr, startStr, endStr string) (uuid.UUID, time.Time, time.Time, error) {
	barberID, err := uuidFromString(barberIDStr, "barber_id")
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, err
	}
	start, err := parseLocalTime(startStr, h.loc)
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, err
	}
	end, err := parseLocalTime(endStr, h.loc)
	if err != nil {
		return uuid.Nil, time.Time{}, time.Time{}, err
	}
	return barberID, start, end, nil
}

func parseLocalTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation("2006-01-02T15:04", value, loc)
	if err != nil {
		return time.Time{}, apperr.InvalidArgument("invalid timestamp %q", value)
	}
	return t, nil
}
