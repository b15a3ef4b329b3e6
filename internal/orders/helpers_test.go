package orders

import (
	"strings"
	"testing"

	"github.com/angelmondragon/storefront-orders/internal/catalog"
	"github.com/angelmondragon/storefront-orders/internal/inventory"
	"github.com/angelmondragon/storefront-orders/internal/pricing"
	"github.com/angelmondragon/storefront-orders/internal/receipt"
	pkgdb "github.com/angelmondragon/storefront-orders/pkg/db"
	"github.com/angelmondragon/storefront-orders/pkg/db/models"
	"github.com/angelmondragon/storefront-orders/pkg/enums"
	"github.com/angelmondragon/storefront-orders/pkg/metrics"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	db  *gorm.DB
	svc Service
	reg *prometheus.Registry
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+strings.ReplaceAll(t.Name(), "/", "_")+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&models.Product{}, &models.Order{}, &models.OrderLine{}))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil)
}

func newFixtureWithRepo(t *testing.T, wrap func(Repository) Repository) *fixture {
	t.Helper()
	return newFixtureWith(t, wrap, inventory.NewLedger())
}

func newFixtureWith(t *testing.T, wrap func(Repository) Repository, ledger stockLedger) *fixture {
	t.Helper()

	conn := setupOrdersTestDB(t)
	gen, err := receipt.NewGenerator(receipt.Config{
		StoreName:    "Storefront",
		CurrencyCode: "ARS",
		Footer:       "Thank you for your purchase!",
		TaxPercent:   pricing.DefaultConfig().TaxPercent(),
	})
	require.NoError(t, err)

	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	reg := prometheus.NewRegistry()
	svc, err := NewService(
		pkgdb.Wrap(conn),
		repo,
		catalog.NewRepository(conn),
		ledger,
		pricing.NewCalculator(pricing.DefaultConfig()),
		gen,
		nil,
		metrics.NewOrderMetrics(reg),
	)
	require.NoError(t, err)
	return &fixture{db: conn, svc: svc, reg: reg}
}

func (f *fixture) product(t *testing.T, name string, priceCents int64, stock int) models.Product {
	t.Helper()
	p := models.Product{SKU: gofakeit.UUID(), Name: name, PriceCents: priceCents, Stock: stock}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int {
	t.Helper()
	var p models.Product
	require.NoError(t, f.db.Unscoped().First(&p, "id = ?", productID).Error)
	return p.Stock
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	return count
}

func (f *fixture) setStatus(t *testing.T, orderID int64, status enums.OrderStatus) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", orderID).UpdateColumn("status", status).Error)
}

func (f *fixture) counter(t *testing.T, name, label, value string) float64 {
	t.Helper()
	mfs, err := f.reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabel(metric.GetLabel(), label, value) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func hasLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, l := range labels {
		if l.GetName() == name && l.GetValue() == value {
			return true
		}
	}
	return false
}

func orderInput(items ...CartItemInput) CreateOrderInput {
	return CreateOrderInput{
		Customer: CustomerInput{
			Name:  gofakeit.Name(),
			Email: gofakeit.Email(),
			Phone: gofakeit.Phone(),
		},
		Shipping: AddressInput{
			Street:     gofakeit.Street(),
			City:       gofakeit.City(),
			State:      gofakeit.State(),
			PostalCode: gofakeit.Zip(),
			Country:    "AR",
		},
		ShippingMethod: enums.ShippingMethodStandard,
		PaymentMethod:  enums.PaymentMethodCard,
		Items:          items,
	}
}
