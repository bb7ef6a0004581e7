package transport

import (
	"net/http"
	"strconv"

	"barberflow/internal/domain"
	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CreateMovementRequest represents the manual stock movement payload
type CreateMovementRequest struct {
	Type     string `json:"type" validate:"required,oneof=in out adjustment"`
	Quantity int    `json:"quantity"`
	Reason   string `json:"reason" validate:"required"`
}

// StockHandler handles HTTP requests for stock movements
type StockHandler struct {
	stock  service.StockService
	logger *zap.Logger
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(stock service.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		stock:  stock,
		logger: logger,
	}
}

// RegisterRoutes registers all stock routes
func (h *StockHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/stock/{id}", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/movements", h.CreateMovement)
		r.Get("/movements", h.ListMovements)
	})
}

// CreateMovement applies a manual in/out/adjustment movement
func (h *StockHandler) CreateMovement(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var req CreateMovementRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	movement, err := h.stock.CreateMovement(r.Context(), actorFromRequest(r), service.CreateMovementInput{
		ProductID: productID,
		Type:      domain.MovementType(req.Type),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
	})
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Stock movement recorded",
		zap.String("product_id", productID.String()),
		zap.String("type", req.Type),
		zap.Int("new_quantity", movement.NewQuantity),
	)
	respondSuccess(w, http.StatusCreated, movement)
}

// ListMovements returns a product's movement history, newest first
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	movements, err := h.stock.ListMovements(r.Context(), actorFromRequest(r), productID, limit)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, movements)
}
