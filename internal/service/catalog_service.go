package service

import (
	"context"
	"errors"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductInput carries product create/update fields. Stock is absent on
// purpose: it only moves through sales and stock movements.
type ProductInput struct {
	Name          string
	CategoryID    uuid.UUID
	PriceCents    int64
	MinStockAlert int
	CommissionPct float64
	Active        bool
}

// CatalogService manages the product catalog, categories and the product
// settings singleton.
type CatalogService interface {
	CreateProduct(ctx context.Context, actor Actor, input ProductInput, initialStock int) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error)
	SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error)
	CreateCategory(ctx context.Context, actor Actor, name string) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetSettings(ctx context.Context, actor Actor) (*domain.ProductSettings, error)
	UpdateSettings(ctx context.Context, actor Actor, settings *domain.ProductSettings) error
}

type catalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	settings   *SettingsCache
	authz      Authorizer
	clock      func() time.Time
	logger     *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	settings *SettingsCache,
	authz Authorizer,
	clock func() time.Time,
	logger *zap.Logger,
) CatalogService {
	if clock == nil {
		clock = time.Now
	}
	return &catalogService{
		products:   products,
		categories: categories,
		settings:   settings,
		authz:      authz,
		clock:      clock,
		logger:     logger,
	}
}

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, input ProductInput, initialStock int) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	if initialStock < 0 {
		return nil, apperr.InvalidArgument("initial stock cannot be negative")
	}
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return nil, err
	}

	if _, err := s.categories.FindByID(ctx, input.CategoryID); err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, apperr.NotFound("category not found")
		}
		return nil, apperr.Internal(err, "failed to load category")
	}

	now := s.clock()
	product := &domain.Product{
		ID:            uuid.New(),
		Name:          input.Name,
		CategoryID:    input.CategoryID,
		PriceCents:    input.PriceCents,
		StockQuantity: initialStock,
		MinStockAlert: input.MinStockAlert,
		CommissionPct: input.CommissionPct,
		Active:        input.Active,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.products.Create(ctx, product); err != nil {
		return nil, apperr.Internal(err, "failed to create product")
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("name", product.Name),
	)
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor Actor, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if err := validateProductInput(input); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal(err, "failed to load product")
	}

	product.Name = input.Name
	product.CategoryID = input.CategoryID
	product.PriceCents = input.PriceCents
	product.MinStockAlert = input.MinStockAlert
	product.CommissionPct = input.CommissionPct
	product.Active = input.Active
	product.UpdatedAt = s.clock()

	if err := s.products.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal(err, "failed to update product")
	}

	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return apperr.NotFound("product not found")
		}
		return apperr.Internal(err, "failed to delete product")
	}
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, apperr.Internal(err, "failed to load product")
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, categoryID *uuid.UUID, page, pageSize int, sortBy string, sortOrder repository.SortOrder) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	products, total, err := s.products.List(ctx, categoryID, page, pageSize, sortBy, sortOrder)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list products")
	}
	return products, total, nil
}

func (s *catalogService) SearchProducts(ctx context.Context, query string, page, pageSize int) ([]*domain.Product, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	products, total, err := s.products.Search(ctx, query, page, pageSize)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to search products")
	}
	return products, total, nil
}

func (s *catalogService) CreateCategory(ctx context.Context, actor Actor, name string) (*domain.Category, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("category name is required")
	}
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return nil, err
	}

	category := &domain.Category{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: s.clock(),
	}
	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrCategoryAlreadyExists) {
			return nil, apperr.AlreadyExists("category %q already exists", name)
		}
		return nil, apperr.Internal(err, "failed to create category")
	}
	return category, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list categories")
	}
	return categories, nil
}

func (s *catalogService) GetSettings(ctx context.Context, actor Actor) (*domain.ProductSettings, error) {
	if err := s.authz.Authorize(actor, ActionManageSettings, uuid.Nil); err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load settings")
	}
	return settings, nil
}

func (s *catalogService) UpdateSettings(ctx context.Context, actor Actor, settings *domain.ProductSettings) error {
	if err := s.authz.Authorize(actor, ActionManageSettings, uuid.Nil); err != nil {
		return err
	}
	if settings.DefaultCommissionPct < 0 || settings.DefaultCommissionPct > 100 {
		return apperr.InvalidArgument("default commission must be between 0 and 100")
	}
	settings.UpdatedAt = s.clock()
	if err := s.settings.Update(ctx, settings); err != nil {
		return apperr.Internal(err, "failed to update settings")
	}
	return nil
}

func validateProductInput(input ProductInput) error {
	if input.Name == "" {
		return apperr.InvalidArgument("product name is required")
	}
	if input.CategoryID == uuid.Nil {
		return apperr.InvalidArgument("category id is required")
	}
	if input.PriceCents <= 0 {
		return apperr.InvalidArgument("price must be positive")
	}
	if input.MinStockAlert < 0 {
		return apperr.InvalidArgument("min stock alert cannot be negative")
	}
	if input.CommissionPct < 0 || input.CommissionPct > 100 {
		return apperr.InvalidArgument("commission must be between 0 and 100")
	}
	return nil
}
