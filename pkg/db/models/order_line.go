package models

import "time"

// OrderLine snapshots a product's name and price at checkout time.
type OrderLine struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID           int64     `gorm:"column:order_id;not null;index"`
	ProductID         int64     `gorm:"column:product_id;not null"`
	ProductName       string    `gorm:"column:product_name;not null"`
	ProductPriceCents int64     `gorm:"column:product_price_cents;not null"`
	Quantity          int       `gorm:"column:quantity;not null;check:chk_order_lines_quantity,quantity > 0"`
	LineTotalCents    int64     `gorm:"column:line_total_cents;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
}
