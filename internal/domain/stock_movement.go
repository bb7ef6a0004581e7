package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementTypeIn         MovementType = "in"
	MovementTypeOut        MovementType = "out"
	MovementTypeSale       MovementType = "sale"
	MovementTypeAdjustment MovementType = "adjustment"
)

// StockMovement is an append-only ledger entry for a product stock change.
// The invariant NewQuantity = PreviousQuantity + Quantity always holds;
// entries are never updated or deleted. Reversals append a compensating
// adjustment entry instead of rewriting history.
type StockMovement struct {
	ID               uuid.UUID    `json:"id" db:"id"`
	ProductID        uuid.UUID    `json:"product_id" db:"product_id"`
	Type             MovementType `json:"type" db:"type"`
	Quantity         int          `json:"quantity" db:"quantity"`
	PreviousQuantity int          `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int          `json:"new_quantity" db:"new_quantity"`
	Reason           string       `json:"reason" db:"reason"`
	SaleID           *uuid.UUID   `json:"sale_id,omitempty" db:"sale_id"`
	CreatedBy        string       `json:"created_by" db:"created_by"`
	CreatedAt        time.Time    `json:"created_at" db:"created_at"`
}
