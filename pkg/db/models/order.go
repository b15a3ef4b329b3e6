package models

import (
	"time"

	"github.com/angelmondragon/storefront-orders/pkg/enums"
)

// Order is the durable, priced record of a checkout. Only Status and
// UpdatedAt change after creation.
type Order struct {
	ID                 int64                `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerName       string               `gorm:"column:customer_name;not null"`
	CustomerEmail      string               `gorm:"column:customer_email;not null"`
	CustomerPhone      string               `gorm:"column:customer_phone;not null;default:''"`
	ShippingStreet     string               `gorm:"column:shipping_street;not null"`
	ShippingCity       string               `gorm:"column:shipping_city;not null"`
	ShippingState      string               `gorm:"column:shipping_state;not null;default:''"`
	ShippingPostalCode string               `gorm:"column:shipping_postal_code;not null;default:''"`
	ShippingCountry    string               `gorm:"column:shipping_country;not null;default:''"`
	Notes              string               `gorm:"column:notes;not null;default:''"`
	ShippingMethod     enums.ShippingMethod `gorm:"column:shipping_method;not null"`
	PaymentMethod      enums.PaymentMethod  `gorm:"column:payment_method;not null"`
	SubtotalCents      int64                `gorm:"column:subtotal_cents;not null"`
	ShippingCents      int64                `gorm:"column:shipping_cents;not null"`
	TaxCents           int64                `gorm:"column:tax_cents;not null"`
	TotalCents         int64                `gorm:"column:total_cents;not null;check:chk_orders_total,total_cents = subtotal_cents + shipping_cents + tax_cents"`
	Status             enums.OrderStatus    `gorm:"column:status;not null;default:'pending';index"`
	ReceiptText        string               `gorm:"column:receipt_text;not null;default:''"`
	Lines              []OrderLine          `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt          time.Time            `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt          time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
