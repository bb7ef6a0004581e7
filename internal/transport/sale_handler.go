package transport

import (
	"net/http"

	"barberflow/internal/middleware"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SaleItemRequest represents one line of a sale
type SaleItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// CreateSaleRequest represents the sale creation payload
type CreateSaleRequest struct {
	BarberID      string            `json:"barber_id" validate:"required,uuid"`
	Items         []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string            `json:"payment_method" validate:"required"`
	DiscountCents int64             `json:"discount_cents" validate:"gte=0"`
	CustomerID    string            `json:"customer_id" validate:"omitempty,uuid"`
	BookingID     string            `json:"booking_id" validate:"omitempty,uuid"`
	Origin        string            `json:"origin"`
}

// SaleHandler handles HTTP requests for product sales
type SaleHandler struct {
	sales  service.SaleService
	logger *zap.Logger
}

// NewSaleHandler creates a new SaleHandler
func NewSaleHandler(sales service.SaleService, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{
		sales:  sales,
		logger: logger,
	}
}

// RegisterRoutes registers all sale routes
func (h *SaleHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/sales", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Delete("/{id}", h.Delete)
	})
}

// Create handles sale creation
func (h *SaleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Sale validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input, err := toCreateSaleInput(req)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	sale, err := h.sales.CreateSale(r.Context(), actorFromRequest(r), input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.Int64("total_cents", sale.TotalCents),
	)
	respondSuccess(w, http.StatusCreated, sale)
}

// Get returns a sale with its line items
func (h *SaleHandler) Get(w http.ResponseWriter, r *http.Request) {
	saleID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	sale, err := h.sales.GetSale(r.Context(), actorFromRequest(r), saleID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, sale)
}

// Delete removes a sale and compensates stock and customer aggregates
func (h *SaleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	saleID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid sale id")
		return
	}

	if err := h.sales.DeleteSale(r.Context(), actorFromRequest(r), saleID); err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("Sale deleted", zap.String("sale_id", saleID.String()))
	respondSuccess(w, http.StatusOK, map[string]string{"message": "sale deleted"})
}

func toCreateSaleInput(req CreateSaleRequest) (service.CreateSaleInput, error) {
	barberID, err := uuidFromString(req.BarberID, "barber_id")
	if err != nil {
		return service.CreateSaleInput{}, err
	}

	items := make([]service.SaleItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuidFromString(item.ProductID, "product_id")
		if err != nil {
			return service.CreateSaleInput{}, err
		}
		items = append(items, service.SaleItemInput{
			ProductID: productID,
			Quantity:  item.Quantity,
		})
	}

	input := service.CreateSaleInput{
		BarberID:      barberID,
		Items:         items,
		PaymentMethod: req.PaymentMethod,
		DiscountCents: req.DiscountCents,
		Origin:        req.Origin,
	}
	if req.CustomerID != "" {
		customerID, err := uuidFromString(req.CustomerID, "customer_id")
		if err != nil {
			return service.CreateSaleInput{}, err
		}
		input.CustomerID = &customerID
	}
	if req.BookingID != "" {
		bookingID, err := uuidFromString(req.BookingID, "booking_id")
		if err != nil {
			return service.CreateSaleInput{}, err
		}
		input.BookingID = &bookingID
	}
	return input, nil
}
