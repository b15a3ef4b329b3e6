package models

import (
	"time"

	"gorm.io/gorm"
)

// Product is the catalog row the order engine reads prices from and debits
// stock on. Catalog CRUD lives elsewhere.
type Product struct {
	ID         int64          `gorm:"column:id;primaryKey;autoIncrement"`
	SKU        string         `gorm:"column:sku;not null;uniqueIndex"`
	Name       string         `gorm:"column:name;not null"`
	PriceCents int64          `gorm:"column:price_cents;not null;check:chk_products_price,price_cents >= 0"`
	Stock      int            `gorm:"column:stock;not null;default:0;check:chk_products_stock,stock >= 0"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"column:deleted_at;index"`
}
