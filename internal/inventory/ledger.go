package inventory

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/angelmondragon/storefront-orders/internal/catalog"
	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-orders/pkg/errors"
	"gorm.io/gorm"
)

// Demand is a positive quantity requested against one product.
type Demand struct {
	ProductID int64
	Quantity  int
}

// Shortfall describes one demand the catalog cannot satisfy.
type Shortfall struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// StockConstraint is the CHECK constraint keeping product stock non-negative.
const StockConstraint = "chk_products_stock"

const debitStockSQL = `
	UPDATE products
	SET stock = stock - ?,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND stock >= ? AND deleted_at IS NULL
`

// Ledger checks and debits product stock inside a caller-owned transaction.
type Ledger struct{}

// NewLedger returns a Ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// MergeDemands sums quantities for repeated product ids and returns one
// demand per product, ordered by product id. Sums saturate at math.MaxInt.
func MergeDemands(demands []Demand) []Demand {
	totals := make(map[int64]int, len(demands))
	for _, d := range demands {
		current := totals[d.ProductID]
		if d.Quantity > 0 && current > math.MaxInt-d.Quantity {
			totals[d.ProductID] = math.MaxInt
			continue
		}
		totals[d.ProductID] = current + d.Quantity
	}
	merged := make([]Demand, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Demand{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

// Check verifies every demand against a product snapshot. Non-positive
// quantities fail Validation and missing products fail NotFound; otherwise
// every insufficient demand is reported in a single Conflict. Nothing is
// written.
func (l *Ledger) Check(products map[int64]models.Product, demands []Demand) error {
	merged := MergeDemands(demands)

	ids := make([]int64, 0, len(merged))
	for _, d := range merged {
		if d.Quantity <= 0 {
			return invalidDemand(d)
		}
		ids = append(ids, d.ProductID)
	}
	if missing := catalog.MissingIDs(ids, products); len(missing) > 0 {
		return NotFoundError(missing)
	}

	var shortfalls []Shortfall
	for _, d := range merged {
		product := products[d.ProductID]
		if d.Quantity > product.Stock {
			shortfalls = append(shortfalls, Shortfall{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   d.Quantity,
				Available:   product.Stock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return ConflictError(shortfalls)
	}
	return nil
}

// Debit decrements stock for each demand with a conditional update. A demand
// whose update touches no row is re-read and reported as a shortfall; the
// caller must roll back.
func (l *Ledger) Debit(ctx context.Context, tx *gorm.DB, demands []Demand) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for stock debit")
	}

	var shortfalls []Shortfall
	var missing []int64
	for _, d := range MergeDemands(demands) {
		if d.Quantity <= 0 {
			return invalidDemand(d)
		}
		res := tx.WithContext(ctx).Exec(debitStockSQL, d.Quantity, d.ProductID, d.Quantity)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "debit stock")
		}
		if res.RowsAffected == 1 {
			continue
		}

		var current models.Product
		err := tx.WithContext(ctx).Select("id", "name", "stock").First(&current, "id = ?", d.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			missing = append(missing, d.ProductID)
			continue
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload product stock")
		}
		shortfalls = append(shortfalls, Shortfall{
			ProductID:   current.ID,
			ProductName: current.Name,
			Requested:   d.Quantity,
			Available:   current.Stock,
		})
	}

	if len(missing) > 0 {
		return NotFoundError(missing)
	}
	if len(shortfalls) > 0 {
		return ConflictError(shortfalls)
	}
	return nil
}

func invalidDemand(d Demand) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "demand quantity must be positive").
		WithDetails(map[string]any{"product_id": d.ProductID, "quantity": d.Quantity})
}

// ConflictError builds the insufficient stock error carrying every shortfall.
func ConflictError(shortfalls []Shortfall) error {
	return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").
		WithDetails(map[string]any{"shortfalls": shortfalls})
}

// NotFoundError names the product ids that do not exist.
func NotFoundError(ids []int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_ids": ids})
}

// ShortfallsFrom extracts the shortfall list from a Conflict built by this package.
func ShortfallsFrom(err error) []Shortfall {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		return nil
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		return nil
	}
	shortfalls, _ := details["shortfalls"].([]Shortfall)
	return shortfalls
}
