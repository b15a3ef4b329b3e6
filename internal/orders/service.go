package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-orders/internal/catalog"
	"github.com/angelmondragon/storefront-orders/internal/inventory"
	"github.com/angelmondragon/storefront-orders/internal/pricing"
	"github.com/angelmondragon/storefront-orders/pkg/db"
	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-orders/pkg/errors"
	"github.com/angelmondragon/storefront-orders/pkg/logger"
	"github.com/angelmondragon/storefront-orders/pkg/metrics"
	"github.com/angelmondragon/storefront-orders/pkg/pagination"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	Check(products map[int64]models.Product, demands []inventory.Demand) error
	Debit(ctx context.Context, tx *gorm.DB, demands []inventory.Demand) error
}

type quoter interface {
	Quote(lines []pricing.Line, method enums.ShippingMethod) (pricing.Quote, error)
}

type receiptRenderer interface {
	Render(order *models.Order) string
}

// Service exposes order creation, lookup, listing and status transitions.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error)
}

type service struct {
	tx       txRunner
	repo     Repository
	catalog  catalog.Reader
	ledger   stockLedger
	pricing  quoter
	receipts receiptRenderer
	logg     *logger.Logger
	metrics  *metrics.OrderMetrics
}

// NewService wires the order engine. Metrics may be nil.
func NewService(
	tx txRunner,
	repo Repository,
	catalogReader catalog.Reader,
	ledger stockLedger,
	calc quoter,
	receipts receiptRenderer,
	logg *logger.Logger,
	orderMetrics *metrics.OrderMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if catalogReader == nil {
		return nil, fmt.Errorf("catalog reader required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	if calc == nil {
		return nil, fmt.Errorf("pricing calculator required")
	}
	if receipts == nil {
		return nil, fmt.Errorf("receipt generator required")
	}
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "orders", Output: io.Discard})
	}
	return &service{
		tx:       tx,
		repo:     repo,
		catalog:  catalogReader,
		ledger:   ledger,
		pricing:  calc,
		receipts: receipts,
		logg:     logg,
		metrics:  orderMetrics,
	}, nil
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	start := time.Now()
	ctx = s.logg.WithFields(ctx, map[string]any{
		"shipping_method": input.ShippingMethod,
		"item_count":      len(input.Items),
	})
	s.logg.Debug(ctx, "order.create.start")

	order, err := s.createOrder(ctx, input)
	if err != nil {
		typed := pkgerrors.As(err)
		s.metrics.IncRejected(string(typed.Code()))
		s.metrics.ObserveCreate("rejected", time.Since(start))
		if typed.Code() == pkgerrors.CodeInternal || typed.Code() == pkgerrors.CodeDependency {
			s.logg.Error(ctx, "order.create.failed", err)
		} else {
			s.logg.Info(s.logg.WithField(ctx, "code", typed.Code()), "order.create.rejected")
		}
		return nil, err
	}

	s.metrics.IncCreated(string(order.ShippingMethod))
	s.metrics.ObserveCreate("success", time.Since(start))
	ctx = s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(s.logg.WithField(ctx, "total_cents", order.TotalCents), "order.create.complete")
	return order, nil
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	input = normalizeCreateInput(input)
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	cart := mergeCartItems(input.Items)
	demands := make([]inventory.Demand, 0, len(cart))
	ids := make([]int64, 0, len(cart))
	for _, item := range cart {
		demands = append(demands, inventory.Demand{ProductID: item.ProductID, Quantity: item.Quantity})
		ids = append(ids, item.ProductID)
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.catalog.WithTx(tx).LockProductsByIDs(ctx, ids)
		if err != nil {
			return storeError(err, "load products")
		}
		snapshot := catalog.ByID(products)

		if err := s.ledger.Check(snapshot, demands); err != nil {
			return err
		}

		priceLines := make([]pricing.Line, 0, len(cart))
		for _, item := range cart {
			priceLines = append(priceLines, pricing.Line{
				ProductID:      item.ProductID,
				UnitPriceCents: snapshot[item.ProductID].PriceCents,
				Quantity:       item.Quantity,
			})
		}
		quote, err := s.pricing.Quote(priceLines, input.ShippingMethod)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "order total out of range")
		}

		if err := s.ledger.Debit(ctx, tx, demands); err != nil {
			return err
		}

		repo := s.repo.WithTx(tx)
		order := &models.Order{
			CustomerName:       input.Customer.Name,
			CustomerEmail:      input.Customer.Email,
			CustomerPhone:      input.Customer.Phone,
			ShippingStreet:     input.Shipping.Street,
			ShippingCity:       input.Shipping.City,
			ShippingState:      input.Shipping.State,
			ShippingPostalCode: input.Shipping.PostalCode,
			ShippingCountry:    input.Shipping.Country,
			Notes:              input.Notes,
			ShippingMethod:     input.ShippingMethod,
			PaymentMethod:      input.PaymentMethod,
			SubtotalCents:      quote.SubtotalCents,
			ShippingCents:      quote.ShippingCents,
			TaxCents:           quote.TaxCents,
			TotalCents:         quote.TotalCents,
			Status:             enums.OrderStatusPending,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return storeError(err, "insert order")
		}

		lines := make([]models.OrderLine, 0, len(quote.Lines))
		for _, priced := range quote.Lines {
			lines = append(lines, models.OrderLine{
				OrderID:           order.ID,
				ProductID:         priced.ProductID,
				ProductName:       snapshot[priced.ProductID].Name,
				ProductPriceCents: priced.UnitPriceCents,
				Quantity:          priced.Quantity,
				LineTotalCents:    priced.LineTotalCents,
			})
		}
		if err := repo.CreateOrderLines(ctx, lines); err != nil {
			return storeError(err, "insert order lines")
		}

		persisted, err := repo.FindOrder(ctx, order.ID)
		if err != nil {
			return storeError(err, "reload order")
		}
		receipt := s.receipts.Render(persisted)
		if err := repo.UpdateReceipt(ctx, order.ID, receipt); err != nil {
			return storeError(err, "write receipt")
		}
		persisted.ReceiptText = receipt
		created = persisted
		return nil
	})
	if db.IsCheckViolation(err, inventory.StockConstraint) {
		return nil, s.stockConflict(ctx, ids, demands, err)
	}
	if err != nil {
		return nil, storeError(err, "create order")
	}
	return created, nil
}

// stockConflict re-reads stock after the store rejected a debit, so the
// caller still receives the per-product shortfalls.
func (s *service) stockConflict(ctx context.Context, ids []int64, demands []inventory.Demand, cause error) error {
	products, err := s.catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return storeError(err, "reload products")
	}
	if err := s.ledger.Check(catalog.ByID(products), demands); err != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, cause, "stock changed during checkout")
}

func (s *service) GetOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive").
			WithDetails(map[string]any{"order_id": orderID})
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, orderNotFound(orderID)
		}
		return nil, storeError(err, "load order")
	}
	return order, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID int64, status enums.OrderStatus) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id must be positive").
			WithDetails(map[string]any{"order_id": orderID})
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"requested": status, "valid": enums.OrderStatuses()})
	}
	ctx = s.logg.WithOrderID(ctx, orderID)

	var (
		updated *models.Order
		from    enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orderNotFound(orderID)
			}
			return storeError(err, "load order")
		}

		if !order.Status.CanTransitionTo(status) {
			msg := "status transition not allowed"
			if order.Status.IsTerminal() {
				msg = fmt.Sprintf("order is %s and can no longer change status", order.Status)
			}
			return pkgerrors.New(pkgerrors.CodeValidation, msg).
				WithDetails(map[string]any{
					"current":   order.Status,
					"requested": status,
					"allowed":   order.Status.AllowedTransitions(),
				})
		}

		if err := repo.UpdateOrderStatus(ctx, orderID, status); err != nil {
			return storeError(err, "update order status")
		}
		from = order.Status

		updated, err = repo.FindOrder(ctx, orderID)
		if err != nil {
			return storeError(err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "update order status")
	}

	s.metrics.IncTransition(string(from), string(status))
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": status}), "order.status.changed")
	return updated, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	params := pagination.Params{Page: input.Page, Limit: input.Limit}.Normalize()

	var filters ListFilters
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(strings.ToLower(raw))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter").
				WithDetails(map[string]any{"field": "status", "valid": enums.OrderStatuses()})
		}
		filters.Status = &status
	}

	orders, total, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, storeError(err, "list orders")
	}
	return &OrderList{
		Orders:     orders,
		Pagination: pagination.NewPage(params, total),
	}, nil
}

func orderNotFound(orderID int64) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
		WithDetails(map[string]any{"order_id": orderID})
}

// storeError keeps typed errors and classifies raw store failures. A CHECK
// violation here is a broken invariant, not a client error.
func storeError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed
	}
	if db.IsRetryable(err) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, msg)
}
