package service

import (
	"context"
	"errors"
	"math"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SaleItemInput is one requested line of a sale.
type SaleItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateSaleInput carries a sale request. Totals are never accepted from the
// caller; the service computes them from product snapshots.
type CreateSaleInput struct {
	BarberID      uuid.UUID
	Items         []SaleItemInput
	PaymentMethod string
	DiscountCents int64
	CustomerID    *uuid.UUID
	BookingID     *uuid.UUID
	Origin        string
}

var validPaymentMethods = map[string]bool{
	"cash": true, "card": true, "pix": true, "transfer": true,
}

// SaleService is the sale ledger: it validates stock, computes totals and
// commission, and applies the sale as one atomic transaction over products,
// the stock ledger, the sale record, and customer/booking aggregates.
// Deletion reverses every effect in a compensating transaction.
type SaleService interface {
	CreateSale(ctx context.Context, actor Actor, input CreateSaleInput) (*domain.Sale, error)
	DeleteSale(ctx context.Context, actor Actor, saleID uuid.UUID) error
	GetSale(ctx context.Context, actor Actor, saleID uuid.UUID) (*domain.Sale, error)
}

type saleService struct {
	tx        store.Transactor
	products  repository.ProductRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
	customers repository.CustomerRepository
	bookings  repository.BookingRepository
	barbers   repository.BarberRepository
	settings  *SettingsCache
	authz     Authorizer
	clock     func() time.Time
	logger    *zap.Logger
}

// NewSaleService creates a new instance of SaleService
func NewSaleService(
	tx store.Transactor,
	products repository.ProductRepository,
	sales repository.SaleRepository,
	movements repository.StockMovementRepository,
	customers repository.CustomerRepository,
	bookings repository.BookingRepository,
	barbers repository.BarberRepository,
	settings *SettingsCache,
	authz Authorizer,
	clock func() time.Time,
	logger *zap.Logger,
) SaleService {
	if clock == nil {
		clock = time.Now
	}
	return &saleService{
		tx:        tx,
		products:  products,
		sales:     sales,
		movements: movements,
		customers: customers,
		bookings:  bookings,
		barbers:   barbers,
		settings:  settings,
		authz:     authz,
		clock:     clock,
		logger:    logger,
	}
}

func (s *saleService) CreateSale(ctx context.Context, actor Actor, input CreateSaleInput) (*domain.Sale, error) {
	if err := validateCreateSale(input); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionCreateSale, input.BarberID); err != nil {
		return nil, err
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load product settings")
	}

	barber, err := s.barbers.FindByID(ctx, input.BarberID)
	if err != nil {
		if errors.Is(err, repository.ErrBarberNotFound) {
			return nil, apperr.NotFound("barber not found")
		}
		return nil, apperr.Internal(err, "failed to load barber")
	}
	isOwner := barber.Role == domain.RoleOwner

	// Pre-transaction screening: reject obviously bad requests cheaply.
	// The authoritative stock check runs again on the re-read inside the
	// transaction.
	for _, item := range input.Items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrProductNotFound) {
				return nil, apperr.NotFound("product %s not found", item.ProductID)
			}
			return nil, apperr.Internal(err, "failed to load product")
		}
		if !product.Active {
			return nil, apperr.FailedPrecondition("product %s is inactive", product.Name)
		}
		if settings.BlockSaleOnZeroStock && item.Quantity > product.StockQuantity {
			return nil, apperr.FailedPrecondition("insufficient stock for %s: have %d, requested %d",
				product.Name, product.StockQuantity, item.Quantity)
		}
	}

	now := s.clock()
	sale := &domain.Sale{
		ID:            uuid.New(),
		BarberID:      input.BarberID,
		CustomerID:    input.CustomerID,
		BookingID:     input.BookingID,
		PaymentMethod: input.PaymentMethod,
		Origin:        input.Origin,
		DiscountCents: input.DiscountCents,
		CreatedBy:     actor.UserID,
		CreatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		products := s.products.WithTx(tx)
		sales := s.sales.WithTx(tx)
		movements := s.movements.WithTx(tx)
		customers := s.customers.WithTx(tx)
		bookings := s.bookings.WithTx(tx)

		// Reads first: every product, then customer and booking.
		loaded := make([]*domain.Product, len(input.Items))
		for i, item := range input.Items {
			product, err := products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					return apperr.NotFound("product %s not found", item.ProductID)
				}
				return apperr.Internal(err, "failed to load product")
			}
			if !product.Active {
				return apperr.FailedPrecondition("product %s is inactive", product.Name)
			}
			if settings.BlockSaleOnZeroStock && item.Quantity > product.StockQuantity {
				return apperr.FailedPrecondition("insufficient stock for %s: have %d, requested %d",
					product.Name, product.StockQuantity, item.Quantity)
			}
			loaded[i] = product
		}

		if input.CustomerID != nil {
			if _, err := customers.FindByID(ctx, *input.CustomerID); err != nil {
				if errors.Is(err, repository.ErrCustomerNotFound) {
					return apperr.NotFound("customer not found")
				}
				return apperr.Internal(err, "failed to load customer")
			}
		}
		if input.BookingID != nil {
			if _, err := bookings.FindByID(ctx, *input.BookingID); err != nil {
				if errors.Is(err, repository.ErrBookingNotFound) {
					return apperr.NotFound("booking not found")
				}
				return apperr.Internal(err, "failed to load booking")
			}
		}

		// Totals from the authoritative in-transaction snapshots.
		sale.Items = sale.Items[:0]
		for i, item := range input.Items {
			product := loaded[i]
			pct := product.CommissionPct
			if pct == 0 {
				pct = settings.DefaultCommissionPct
			}
			if isOwner {
				pct = 0
			}
			sale.Items = append(sale.Items, domain.SaleItem{
				ProductID:      product.ID,
				ProductName:    product.Name,
				UnitPriceCents: product.PriceCents,
				Quantity:       item.Quantity,
				CommissionPct:  pct,
			})
		}
		sale.SubtotalCents, sale.TotalCents, sale.CommissionCents = computeTotals(sale.Items, sale.DiscountCents)

		// Writes: sale, stock decrements with ledger entries, aggregates.
		if err := sales.Insert(ctx, sale); err != nil {
			return apperr.Internal(err, "failed to write sale")
		}
		for i, item := range input.Items {
			product := loaded[i]
			newQty := product.StockQuantity - item.Quantity
			if newQty < 0 {
				newQty = 0
			}
			if err := products.UpdateStock(ctx, product.ID, newQty); err != nil {
				return apperr.Internal(err, "failed to update stock")
			}
			saleID := sale.ID
			movement := &domain.StockMovement{
				ID:               uuid.New(),
				ProductID:        product.ID,
				Type:             domain.MovementTypeSale,
				Quantity:         newQty - product.StockQuantity,
				PreviousQuantity: product.StockQuantity,
				NewQuantity:      newQty,
				Reason:           "product sale",
				SaleID:           &saleID,
				CreatedBy:        actor.UserID,
				CreatedAt:        now,
			}
			if err := movements.Insert(ctx, movement); err != nil {
				return apperr.Internal(err, "failed to write stock movement")
			}
			s.warnLowStock(settings, product, newQty)
		}
		if input.CustomerID != nil {
			delta := repository.PurchaseStatsDelta{Purchases: 1, SpentCents: sale.TotalCents, LastPurchaseAt: &now}
			if err := customers.ApplyPurchaseStats(ctx, *input.CustomerID, delta); err != nil {
				return apperr.Internal(err, "failed to update customer stats")
			}
		}
		if input.BookingID != nil {
			saleID := sale.ID
			if err := bookings.SetSaleLink(ctx, *input.BookingID, true, &saleID); err != nil {
				return apperr.Internal(err, "failed to link sale to booking")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Sale created",
		zap.String("sale_id", sale.ID.String()),
		zap.String("barber_id", sale.BarberID.String()),
		zap.Int64("total_cents", sale.TotalCents),
		zap.Int64("commission_cents", sale.CommissionCents),
	)
	return sale, nil
}

// DeleteSale reverses a sale: stock returns, a compensating adjustment
// movement is appended per item, customer aggregates are decremented, and
// any booking link is cleared.
func (s *saleService) DeleteSale(ctx context.Context, actor Actor, saleID uuid.UUID) error {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return apperr.NotFound("sale not found")
		}
		return apperr.Internal(err, "failed to load sale")
	}
	if err := s.authz.Authorize(actor, ActionDeleteSale, sale.BarberID); err != nil {
		return err
	}

	now := s.clock()

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		products := s.products.WithTx(tx)
		sales := s.sales.WithTx(tx)
		movements := s.movements.WithTx(tx)
		customers := s.customers.WithTx(tx)
		bookings := s.bookings.WithTx(tx)

		current, err := sales.FindByID(ctx, saleID)
		if err != nil {
			if errors.Is(err, repository.ErrSaleNotFound) {
				return apperr.NotFound("sale not found")
			}
			return apperr.Internal(err, "failed to load sale")
		}

		loaded := make([]*domain.Product, len(current.Items))
		for i, item := range current.Items {
			product, err := products.FindByID(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, repository.ErrProductNotFound) {
					// Product was deleted after the sale; stock cannot be
					// restored but the rest of the reversal proceeds.
					continue
				}
				return apperr.Internal(err, "failed to load product")
			}
			loaded[i] = product
		}

		if err := sales.Delete(ctx, saleID); err != nil {
			return apperr.Internal(err, "failed to delete sale")
		}
		for i, item := range current.Items {
			product := loaded[i]
			if product == nil {
				continue
			}
			newQty := product.StockQuantity + item.Quantity
			if err := products.UpdateStock(ctx, product.ID, newQty); err != nil {
				return apperr.Internal(err, "failed to restore stock")
			}
			sid := current.ID
			movement := &domain.StockMovement{
				ID:               uuid.New(),
				ProductID:        product.ID,
				Type:             domain.MovementTypeAdjustment,
				Quantity:         item.Quantity,
				PreviousQuantity: product.StockQuantity,
				NewQuantity:      newQty,
				Reason:           "sale deleted",
				SaleID:           &sid,
				CreatedBy:        actor.UserID,
				CreatedAt:        now,
			}
			if err := movements.Insert(ctx, movement); err != nil {
				return apperr.Internal(err, "failed to write stock movement")
			}
		}
		if current.CustomerID != nil {
			delta := repository.PurchaseStatsDelta{Purchases: -1, SpentCents: -current.TotalCents}
			if err := customers.ApplyPurchaseStats(ctx, *current.CustomerID, delta); err != nil {
				return apperr.Internal(err, "failed to update customer stats")
			}
		}
		if current.BookingID != nil {
			if err := bookings.SetSaleLink(ctx, *current.BookingID, false, nil); err != nil {
				return apperr.Internal(err, "failed to unlink sale from booking")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Sale deleted",
		zap.String("sale_id", saleID.String()),
		zap.String("deleted_by", actor.UserID),
	)
	return nil
}

func (s *saleService) GetSale(ctx context.Context, actor Actor, saleID uuid.UUID) (*domain.Sale, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		if errors.Is(err, repository.ErrSaleNotFound) {
			return nil, apperr.NotFound("sale not found")
		}
		return nil, apperr.Internal(err, "failed to load sale")
	}
	if err := s.authz.Authorize(actor, ActionCreateSale, sale.BarberID); err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *saleService) warnLowStock(settings *domain.ProductSettings, product *domain.Product, newQty int) {
	if !settings.LowStockAlertEnabled || newQty > product.MinStockAlert {
		return
	}
	// Alert delivery (WhatsApp etc.) is an external collaborator; the
	// ledger only raises the signal.
	s.logger.Warn("Product stock at or below alert threshold",
		zap.String("product_id", product.ID.String()),
		zap.String("product", product.Name),
		zap.Int("stock", newQty),
		zap.Int("min_stock_alert", product.MinStockAlert),
		zap.Bool("whatsapp_alert_enabled", settings.LowStockWhatsappEnabled),
	)
}

// computeTotals derives subtotal, final total and prorated commission from
// item snapshots. The discount clamps the total at zero and scales the
// commission by the ratio of final to raw total.
func computeTotals(items []domain.SaleItem, discountCents int64) (subtotal, total, commission int64) {
	var rawCommission float64
	for _, item := range items {
		subtotal += item.LineTotalCents()
		rawCommission += float64(item.LineTotalCents()) * item.CommissionPct / 100
	}

	total = subtotal - discountCents
	if total < 0 {
		total = 0
	}

	ratio := 1.0
	if subtotal > 0 {
		ratio = float64(total) / float64(subtotal)
	}
	commission = int64(math.Round(rawCommission * ratio))
	return subtotal, total, commission
}

func validateCreateSale(input CreateSaleInput) error {
	if input.BarberID == uuid.Nil {
		return apperr.InvalidArgument("barber id is required")
	}
	if len(input.Items) == 0 {
		return apperr.InvalidArgument("at least one item is required")
	}
	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return apperr.InvalidArgument("item product id is required")
		}
		if item.Quantity <= 0 {
			return apperr.InvalidArgument("item quantity must be positive")
		}
		if seen[item.ProductID] {
			return apperr.InvalidArgument("duplicate product %s in items", item.ProductID)
		}
		seen[item.ProductID] = true
	}
	if !validPaymentMethods[input.PaymentMethod] {
		return apperr.InvalidArgument("unknown payment method %q", input.PaymentMethod)
	}
	if input.DiscountCents < 0 {
		return apperr.InvalidArgument("discount cannot be negative")
	}
	return nil
}
