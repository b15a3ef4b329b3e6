package catalog

import (
	"context"
	"testing"

	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seed(t *testing.T, db *gorm.DB, products ...models.Product) []models.Product {
	t.Helper()
	for i := range products {
		require.NoError(t, db.Create(&products[i]).Error)
	}
	return products
}

func TestGetProductsByIDsSkipsDeletedAndMissing(t *testing.T) {
	db := newTestDB(t)
	seeded := seed(t, db,
		models.Product{SKU: "A", Name: "Alpha", PriceCents: 1000, Stock: 3},
		models.Product{SKU: "B", Name: "Beta", PriceCents: 2000, Stock: 4},
		models.Product{SKU: "C", Name: "Gamma", PriceCents: 3000, Stock: 5},
	)
	require.NoError(t, db.Delete(&seeded[1]).Error)

	repo := NewRepository(db)
	products, err := repo.GetProductsByIDs(context.Background(), []int64{seeded[2].ID, seeded[0].ID, seeded[1].ID, 999, seeded[0].ID})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, seeded[0].ID, products[0].ID)
	assert.Equal(t, seeded[2].ID, products[1].ID)

	missing := MissingIDs([]int64{seeded[1].ID, 999, seeded[0].ID}, ByID(products))
	assert.Equal(t, []int64{seeded[1].ID, 999}, missing)
}

func TestLockProductsByIDsInsideTransaction(t *testing.T) {
	db := newTestDB(t)
	seeded := seed(t, db, models.Product{SKU: "A", Name: "Alpha", PriceCents: 1000, Stock: 3})

	err := db.Transaction(func(tx *gorm.DB) error {
		products, err := NewRepository(db).WithTx(tx).LockProductsByIDs(context.Background(), []int64{seeded[0].ID})
		require.NoError(t, err)
		require.Len(t, products, 1)
		assert.Equal(t, 3, products[0].Stock)
		return nil
	})
	require.NoError(t, err)
}

func TestEmptyIDsShortCircuit(t *testing.T) {
	db := newTestDB(t)
	products, err := NewRepository(db).GetProductsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestSortedUniqueIDs(t *testing.T) {
	assert.Equal(t, []int64{1, 3, 7}, SortedUniqueIDs([]int64{7, 3, 7, 1, 3}))
	assert.Empty(t, SortedUniqueIDs(nil))
}
