package orders

import (
	"context"

	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	"github.com/angelmondragon/storefront-orders/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for the orders and order_lines tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	UpdateReceipt(ctx context.Context, orderID int64, receipt string) error
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status enums.OrderStatus) error
	ListOrders(ctx context.Context, params pagination.Params, filters ListFilters) ([]models.Order, int64, error)
}
