package orders

import (
	"github.com/angelmondragon/storefront-orders/api/validators"
	internalorders "github.com/angelmondragon/storefront-orders/internal/orders"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
)

const maxNotesLength = 500

type customerRequest struct {
	Name  string `json:"name" validate:"max=200"`
	Email string `json:"email" validate:"max=254"`
	Phone string `json:"phone" validate:"max=40"`
}

type addressRequest struct {
	Street     string `json:"street" validate:"max=200"`
	City       string `json:"city" validate:"max=100"`
	State      string `json:"state" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

type cartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity" validate:"max=10000"`
}

type createOrderRequest struct {
	Customer       customerRequest   `json:"customer"`
	Shipping       addressRequest    `json:"shipping_address"`
	Notes          string            `json:"notes"`
	ShippingMethod string            `json:"shipping_method"`
	PaymentMethod  string            `json:"payment_method"`
	Items          []cartItemRequest `json:"items" validate:"max=100,dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func toCreateOrderInput(payload createOrderRequest) internalorders.CreateOrderInput {
	items := make([]internalorders.CartItemInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, internalorders.CartItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	return internalorders.CreateOrderInput{
		Customer: internalorders.CustomerInput{
			Name:  payload.Customer.Name,
			Email: payload.Customer.Email,
			Phone: payload.Customer.Phone,
		},
		Shipping: internalorders.AddressInput{
			Street:     payload.Shipping.Street,
			City:       payload.Shipping.City,
			State:      payload.Shipping.State,
			PostalCode: payload.Shipping.PostalCode,
			Country:    payload.Shipping.Country,
		},
		Notes:          validators.SanitizeString(payload.Notes, maxNotesLength),
		ShippingMethod: enums.ShippingMethod(payload.ShippingMethod),
		PaymentMethod:  enums.PaymentMethod(payload.PaymentMethod),
		Items:          items,
	}
}
