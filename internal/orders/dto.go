package orders

import (
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	"github.com/angelmondragon/storefront-orders/pkg/pagination"
)

// CustomerInput holds the contact block of a checkout.
type CustomerInput struct {
	Name  string
	Email string
	Phone string
}

// AddressInput holds the shipping address of a checkout.
type AddressInput struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// CartItemInput is one requested product and quantity.
type CartItemInput struct {
	ProductID int64
	Quantity  int
}

// CreateOrderInput is everything needed to turn a cart into an order.
type CreateOrderInput struct {
	Customer       CustomerInput
	Shipping       AddressInput
	Notes          string
	ShippingMethod enums.ShippingMethod
	PaymentMethod  enums.PaymentMethod
	Items          []CartItemInput
}

// ListFilters narrows the admin order listing.
type ListFilters struct {
	Status *enums.OrderStatus
}

// ListOrdersInput carries the page/limit and filters for ListOrders.
type ListOrdersInput struct {
	Page   int
	Limit  int
	Status string
}

// OrderList is one page of orders without lines.
type OrderList struct {
	Orders     []models.Order
	Pagination pagination.Page
}

// OrderLineView is the API shape of an order line.
type OrderLineView struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	ProductName       string    `json:"product_name"`
	ProductPriceCents int64     `json:"product_price_cents"`
	Quantity          int       `json:"quantity"`
	LineTotalCents    int64     `json:"line_total_cents"`
	CreatedAt         time.Time `json:"created_at"`
}

// CustomerView is the API shape of the contact block.
type CustomerView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// AddressView is the API shape of the shipping address.
type AddressView struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

// OrderView is the API shape of an order with its lines and receipt.
type OrderView struct {
	ID             int64                `json:"id"`
	OrderNumber    string               `json:"order_number"`
	Customer       CustomerView         `json:"customer"`
	Shipping       AddressView          `json:"shipping_address"`
	Notes          string               `json:"notes,omitempty"`
	ShippingMethod enums.ShippingMethod `json:"shipping_method"`
	PaymentMethod  enums.PaymentMethod  `json:"payment_method"`
	SubtotalCents  int64                `json:"subtotal_cents"`
	ShippingCents  int64                `json:"shipping_cents"`
	TaxCents       int64                `json:"tax_cents"`
	TotalCents     int64                `json:"total_cents"`
	Status         enums.OrderStatus    `json:"status"`
	ReceiptText    string               `json:"receipt_text,omitempty"`
	Lines          []OrderLineView      `json:"lines,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// OrderListView is the API shape of a listing page.
type OrderListView struct {
	Orders     []OrderView     `json:"orders"`
	Pagination pagination.Page `json:"pagination"`
}

// OrderNumber formats an order id the way receipts and responses show it.
func OrderNumber(id int64) string {
	return fmt.Sprintf("%06d", id)
}

// NewOrderView maps a persisted order to its API shape.
func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:          order.ID,
		OrderNumber: OrderNumber(order.ID),
		Customer: CustomerView{
			Name:  order.CustomerName,
			Email: order.CustomerEmail,
			Phone: order.CustomerPhone,
		},
		Shipping: AddressView{
			Street:     order.ShippingStreet,
			City:       order.ShippingCity,
			State:      order.ShippingState,
			PostalCode: order.ShippingPostalCode,
			Country:    order.ShippingCountry,
		},
		Notes:          order.Notes,
		ShippingMethod: order.ShippingMethod,
		PaymentMethod:  order.PaymentMethod,
		SubtotalCents:  order.SubtotalCents,
		ShippingCents:  order.ShippingCents,
		TaxCents:       order.TaxCents,
		TotalCents:     order.TotalCents,
		Status:         order.Status,
		ReceiptText:    order.ReceiptText,
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
	for _, line := range order.Lines {
		view.Lines = append(view.Lines, OrderLineView{
			ID:                line.ID,
			ProductID:         line.ProductID,
			ProductName:       line.ProductName,
			ProductPriceCents: line.ProductPriceCents,
			Quantity:          line.Quantity,
			LineTotalCents:    line.LineTotalCents,
			CreatedAt:         line.CreatedAt,
		})
	}
	return view
}

// NewOrderListView maps a listing page to its API shape. Receipts are omitted.
func NewOrderListView(list *OrderList) OrderListView {
	views := make([]OrderView, 0, len(list.Orders))
	for i := range list.Orders {
		view := NewOrderView(&list.Orders[i])
		view.ReceiptText = ""
		views = append(views, view)
	}
	return OrderListView{Orders: views, Pagination: list.Pagination}
}
