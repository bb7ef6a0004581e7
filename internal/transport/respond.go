package transport

import (
	"net/http"

	"barberflow/internal/apperr"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SuccessResponse is the envelope for every successful response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// PagedResponse wraps list responses with pagination metadata.
type PagedResponse struct {
	Success  bool        `json:"success"`
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func respondSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	middleware.RespondWithJSON(w, statusCode, SuccessResponse{Success: true, Data: data})
}

func respondPaged(w http.ResponseWriter, data interface{}, total, page, pageSize int) {
	middleware.RespondWithJSON(w, http.StatusOK, PagedResponse{
		Success:  true,
		Data:     data,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// actorFromRequest assembles the caller's identity from the auth middleware
// context. A missing identity yields a zero actor, which authorization
// rejects as unauthenticated.
func actorFromRequest(r *http.Request) service.Actor {
	actor := service.Actor{}
	if userID, ok := middleware.GetUserID(r.Context()); ok {
		actor.UserID = userID
	}
	if role, ok := middleware.GetUserRole(r.Context()); ok {
		actor.Role = role
	}
	if barberIDStr, ok := middleware.GetBarberID(r.Context()); ok {
		if barberID, err := uuid.Parse(barberIDStr); err == nil {
			actor.BarberID = &barberID
		}
	}
	return actor
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, name))
}

func uuidFromString(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, apperr.InvalidArgument("invalid %s", field)
	}
	return id, nil
}

// respondServiceError translates a service error into the wire envelope.
func respondServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	middleware.RespondWithAppError(w, err, logger)
}
