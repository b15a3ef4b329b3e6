package orders

import (
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-orders/pkg/errors"
)

// MaxLineQuantity caps the units of one product in a single order, after
// repeated cart entries are merged.
const MaxLineQuantity = 10000

func normalizeCreateInput(input CreateOrderInput) CreateOrderInput {
	input.Customer.Name = strings.TrimSpace(input.Customer.Name)
	input.Customer.Email = strings.TrimSpace(input.Customer.Email)
	input.Customer.Phone = strings.TrimSpace(input.Customer.Phone)
	input.Shipping.Street = strings.TrimSpace(input.Shipping.Street)
	input.Shipping.City = strings.TrimSpace(input.Shipping.City)
	input.Shipping.State = strings.TrimSpace(input.Shipping.State)
	input.Shipping.PostalCode = strings.TrimSpace(input.Shipping.PostalCode)
	input.Shipping.Country = strings.TrimSpace(input.Shipping.Country)
	input.Notes = strings.TrimSpace(input.Notes)
	return input
}

// validateCreateInput reports every violated constraint at once.
func validateCreateInput(input CreateOrderInput) error {
	details := map[string]string{}

	if input.Customer.Name == "" {
		details["customer.name"] = "required"
	}
	if input.Customer.Email == "" {
		details["customer.email"] = "required"
	}
	if input.Shipping.Street == "" {
		details["shipping_address.street"] = "required"
	}
	if input.Shipping.City == "" {
		details["shipping_address.city"] = "required"
	}
	if !input.ShippingMethod.IsValid() {
		details["shipping_method"] = fmt.Sprintf("must be one of pickup, standard, express; got %q", input.ShippingMethod)
	}
	if !input.PaymentMethod.IsValid() {
		details["payment_method"] = fmt.Sprintf("must be one of card, mercadopago, transfer; got %q", input.PaymentMethod)
	}
	if len(input.Items) == 0 {
		details["items"] = "must contain at least one item"
	}
	for i, item := range input.Items {
		if item.ProductID <= 0 {
			details[fmt.Sprintf("items[%d].product_id", i)] = "must be positive"
		}
		if item.Quantity <= 0 {
			details[fmt.Sprintf("items[%d].quantity", i)] = "must be greater than zero"
		} else if item.Quantity > MaxLineQuantity {
			details[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("must not exceed %d", MaxLineQuantity)
		}
	}
	for i, productID := range oversizedProducts(input.Items) {
		details[fmt.Sprintf("items[%d].quantity", i)] = fmt.Sprintf("combined quantity for product %d must not exceed %d", productID, MaxLineQuantity)
	}

	if len(details) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(details)
}

// oversizedProducts maps the first cart index of each product whose positive
// quantities sum past MaxLineQuantity to that product id. Items that are
// invalid on their own are skipped and reported elsewhere.
func oversizedProducts(items []CartItemInput) map[int]int64 {
	first := make(map[int64]int, len(items))
	totals := make(map[int64]int, len(items))
	out := map[int]int64{}
	for i, item := range items {
		if item.Quantity <= 0 || item.Quantity > MaxLineQuantity {
			continue
		}
		if _, ok := first[item.ProductID]; !ok {
			first[item.ProductID] = i
		}
		// totals stop growing once past the cap, so the sum cannot wrap.
		if totals[item.ProductID] > MaxLineQuantity {
			continue
		}
		totals[item.ProductID] += item.Quantity
		if totals[item.ProductID] > MaxLineQuantity {
			out[first[item.ProductID]] = item.ProductID
		}
	}
	return out
}

// mergeCartItems collapses repeated products into one item, keeping the
// position of the first occurrence.
func mergeCartItems(items []CartItemInput) []CartItemInput {
	index := make(map[int64]int, len(items))
	merged := make([]CartItemInput, 0, len(items))
	for _, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			merged[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
