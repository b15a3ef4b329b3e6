package catalog

import (
	"context"
	"slices"

	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reader looks up non-deleted products by id.
type Reader interface {
	WithTx(tx *gorm.DB) Reader
	GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
	LockProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog reader bound to the provided DB.
func NewRepository(db *gorm.DB) Reader {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Reader {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetProductsByIDs returns the products that exist, ordered by id. Missing or
// soft-deleted ids are absent from the result.
func (r *repository) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	return r.find(ctx, ids, false)
}

// LockProductsByIDs is GetProductsByIDs with FOR UPDATE row locks. Rows are
// locked in ascending id order so concurrent checkouts never deadlock.
func (r *repository) LockProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	return r.find(ctx, ids, true)
}

func (r *repository) find(ctx context.Context, ids []int64, lock bool) ([]models.Product, error) {
	unique := SortedUniqueIDs(ids)
	if len(unique) == 0 {
		return []models.Product{}, nil
	}

	query := r.db.WithContext(ctx).Where("id IN ?", unique).Order("id ASC")
	if lock {
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// SortedUniqueIDs de-duplicates ids and sorts them ascending.
func SortedUniqueIDs(ids []int64) []int64 {
	unique := lo.Uniq(ids)
	slices.Sort(unique)
	return unique
}

// ByID indexes products by their id.
func ByID(products []models.Product) map[int64]models.Product {
	return lo.KeyBy(products, func(p models.Product) int64 { return p.ID })
}

// MissingIDs lists requested ids absent from found, ascending.
func MissingIDs(requested []int64, found map[int64]models.Product) []int64 {
	return lo.Filter(SortedUniqueIDs(requested), func(id int64, _ int) bool {
		_, ok := found[id]
		return !ok
	})
}
