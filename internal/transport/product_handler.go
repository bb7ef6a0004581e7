package transport

import (
	"net/http"
	"strconv"

	"barberflow/internal/domain"
	"barberflow/internal/middleware"
	"barberflow/internal/repository"
	"barberflow/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductRequest represents the product create/update payload
type ProductRequest struct {
	Name          string  `json:"name" validate:"required"`
	CategoryID    string  `json:"category_id" validate:"required,uuid"`
	PriceCents    int64   `json:"price_cents" validate:"required,gt=0"`
	InitialStock  int     `json:"initial_stock" validate:"gte=0"`
	MinStockAlert int     `json:"min_stock_alert" validate:"gte=0"`
	CommissionPct float64 `json:"commission_pct" validate:"gte=0,lte=100"`
	Active        bool    `json:"active"`
}

// CategoryRequest represents the category creation payload
type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

// SettingsRequest represents the product settings payload
type SettingsRequest struct {
	DefaultCommissionPct    float64 `json:"default_commission_pct" validate:"gte=0,lte=100"`
	LowStockAlertEnabled    bool    `json:"low_stock_alert_enabled"`
	LowStockWhatsappEnabled bool    `json:"low_stock_whatsapp_enabled"`
	BlockSaleOnZeroStock    bool    `json:"block_sale_on_zero_stock"`
}

// ProductHandler handles HTTP requests for the product catalog
type ProductHandler struct {
	catalog service.CatalogService
	logger  *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(catalog service.CatalogService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *ProductHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.List)
		r.Get("/search", h.Search)
		r.Get("/{id}", h.Get)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
	r.Route("/api/categories", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.ListCategories)
		r.Post("/", h.CreateCategory)
	})
	r.Route("/api/settings/products", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/", h.GetSettings)
		r.Put("/", h.UpdateSettings)
	})
}

// Create handles product creation
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	input, err := toProductInput(req)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), actorFromRequest(r), input, req.InitialStock)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusCreated, product)
}

// Update handles product updates. Stock is not updatable here.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	req, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}

	input, err := toProductInput(req)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	product, err := h.catalog.UpdateProduct(r.Context(), actorFromRequest(r), productID, input)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, product)
}

// Delete handles product deletion
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), actorFromRequest(r), productID); err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "product deleted"})
}

// Get returns a single product
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID, err := uuidParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), productID)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, product)
}

// List returns a paginated product listing
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	var categoryID *uuid.UUID
	if raw := q.Get("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category id")
			return
		}
		categoryID = &id
	}

	sortOrder := repository.SortOrderDesc
	if q.Get("sort_order") == "asc" {
		sortOrder = repository.SortOrderAsc
	}

	products, total, err := h.catalog.ListProducts(r.Context(), categoryID, page, pageSize, q.Get("sort_by"), sortOrder)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	respondPaged(w, products, total, page, pageSize)
}

// Search returns products matching a name query
func (h *ProductHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		middleware.RespondWithError(w, http.StatusBadRequest, "missing search query")
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	products, total, err := h.catalog.SearchProducts(r.Context(), query, page, pageSize)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	respondPaged(w, products, total, page, pageSize)
}

// CreateCategory handles category creation
func (h *ProductHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	category, err := h.catalog.CreateCategory(r.Context(), actorFromRequest(r), req.Name)
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusCreated, category)
}

// ListCategories returns all categories
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, categories)
}

// GetSettings returns the product settings singleton
func (h *ProductHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.catalog.GetSettings(r.Context(), actorFromRequest(r))
	if err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, settings)
}

// UpdateSettings replaces the product settings singleton
func (h *ProductHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	settings := &domain.ProductSettings{
		DefaultCommissionPct:    req.DefaultCommissionPct,
		LowStockAlertEnabled:    req.LowStockAlertEnabled,
		LowStockWhatsappEnabled: req.LowStockWhatsappEnabled,
		BlockSaleOnZeroStock:    req.BlockSaleOnZeroStock,
	}
	if err := h.catalog.UpdateSettings(r.Context(), actorFromRequest(r), settings); err != nil {
		respondServiceError(w, err, h.logger)
		return
	}

	respondSuccess(w, http.StatusOK, settings)
}

func (h *ProductHandler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductRequest, bool) {
	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		h.logger.Debug("Product validation failed", zap.Error(err))
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return req, false
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func toProductInput(req ProductRequest) (service.ProductInput, error) {
	categoryID, err := uuidFromString(req.CategoryID, "category_id")
	if err != nil {
		return service.ProductInput{}, err
	}
	return service.ProductInput{
		Name:          req.Name,
		CategoryID:    categoryID,
		PriceCents:    req.PriceCents,
		MinStockAlert: req.MinStockAlert,
		CommissionPct: req.CommissionPct,
		Active:        req.Active,
	}, nil
}
