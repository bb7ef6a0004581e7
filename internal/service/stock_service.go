package service

import (
	"context"
	"errors"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateMovementInput is a manual stock movement request. For in/out the
// quantity is a magnitude; for adjustment it is the target absolute stock
// level.
type CreateMovementInput struct {
	ProductID uuid.UUID
	Type      domain.MovementType
	Quantity  int
	Reason    string
}

// StockService applies manual stock movements. The product update and the
// ledger entry are always written in the same transaction, and every logged
// entry satisfies new = previous + quantity.
type StockService interface {
	CreateMovement(ctx context.Context, actor Actor, input CreateMovementInput) (*domain.StockMovement, error)
	ListMovements(ctx context.Context, actor Actor, productID uuid.UUID, limit int) ([]*domain.StockMovement, error)
}

type stockService struct {
	tx        store.Transactor
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	settings  *SettingsCache
	authz     Authorizer
	clock     func() time.Time
	logger    *zap.Logger
}

// NewStockService creates a new instance of StockService
func NewStockService(
	tx store.Transactor,
	products repository.ProductRepository,
	movements repository.StockMovementRepository,
	settings *SettingsCache,
	authz Authorizer,
	clock func() time.Time,
	logger *zap.Logger,
) StockService {
	if clock == nil {
		clock = time.Now
	}
	return &stockService{
		tx:        tx,
		products:  products,
		movements: movements,
		settings:  settings,
		authz:     authz,
		clock:     clock,
		logger:    logger,
	}
}

func (s *stockService) CreateMovement(ctx context.Context, actor Actor, input CreateMovementInput) (*domain.StockMovement, error) {
	if err := validateCreateMovement(input); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionAdjustStock, uuid.Nil); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load product settings")
	}

	now := s.clock()
	var movement *domain.StockMovement

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		products := s.products.WithTx(tx)
		movements := s.movements.WithTx(tx)

		product, err := products.FindByID(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return apperr.NotFound("product not found")
			}
			return apperr.Internal(err, "failed to load product")
		}

		previous := product.StockQuantity
		newQty := applyMovement(input.Type, previous, input.Quantity)

		if err := products.UpdateStock(ctx, product.ID, newQty); err != nil {
			return apperr.Internal(err, "failed to update stock")
		}

		movement = &domain.StockMovement{
			ID:               uuid.New(),
			ProductID:        product.ID,
			Type:             input.Type,
			Quantity:         newQty - previous,
			PreviousQuantity: previous,
			NewQuantity:      newQty,
			Reason:           input.Reason,
			CreatedBy:        actor.UserID,
			CreatedAt:        now,
		}
		if err := movements.Insert(ctx, movement); err != nil {
			return apperr.Internal(err, "failed to write stock movement")
		}

		if settings.LowStockAlertEnabled && newQty <= product.MinStockAlert {
			s.logger.Warn("Product stock at or below alert threshold",
				zap.String("product_id", product.ID.String()),
				zap.Int("stock", newQty),
				zap.Int("min_stock_alert", product.MinStockAlert),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Stock movement recorded",
		zap.String("movement_id", movement.ID.String()),
		zap.String("product_id", input.ProductID.String()),
		zap.String("type", string(input.Type)),
		zap.Int("quantity", movement.Quantity),
	)
	return movement, nil
}

func (s *stockService) ListMovements(ctx context.Context, actor Actor, productID uuid.UUID, limit int) ([]*domain.StockMovement, error) {
	if err := s.authz.Authorize(actor, ActionAdjustStock, uuid.Nil); err != nil {
		return nil, err
	}
	movements, err := s.movements.ListByProduct(ctx, productID, limit)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list stock movements")
	}
	return movements, nil
}

// applyMovement computes the resulting stock level. "in" adds the
// magnitude, "out" subtracts it flooring at zero, "adjustment" treats the
// quantity as the target absolute level.
func applyMovement(movementType domain.MovementType, previous, quantity int) int {
	switch movementType {
	case domain.MovementTypeIn:
		return previous + abs(quantity)
	case domain.MovementTypeOut:
		newQty := previous - abs(quantity)
		if newQty < 0 {
			return 0
		}
		return newQty
	default: // adjustment
		return quantity
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func validateCreateMovement(input CreateMovementInput) error {
	if input.ProductID == uuid.Nil {
		return apperr.InvalidArgument("product id is required")
	}
	switch input.Type {
	case domain.MovementTypeIn, domain.MovementTypeOut:
		if input.Quantity == 0 {
			return apperr.InvalidArgument("quantity must be non-zero")
		}
	case domain.MovementTypeAdjustment:
		if input.Quantity < 0 {
			return apperr.InvalidArgument("adjustment target cannot be negative")
		}
	default:
		return apperr.InvalidArgument("unknown movement type %q", input.Type)
	}
	if input.Reason == "" {
		return apperr.InvalidArgument("reason is required")
	}
	return nil
}
