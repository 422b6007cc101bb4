package orders

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aurumdesk/aurumdesk/internal/catalog"
	"github.com/aurumdesk/aurumdesk/internal/custody"
)

// newTestDB opens an isolated in-memory sqlite store with the full schema.
// A single connection keeps sqlite's locking out of the picture; the
// conditional updates under test serialize the same way on postgres.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalog.Product{},
		&custody.CustodyService{},
		&Order{},
		&OrderItem{},
		&OrderStatusHistory{},
		&ProcessedPaymentEvent{},
	))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, unitPrice string, stock, minimum int64) *catalog.Product {
	t.Helper()
	p, err := decimal.NewFromString(unitPrice)
	require.NoError(t, err)
	product := &catalog.Product{
		ID:                   uuid.New(),
		SKU:                  fmt.Sprintf("SKU-%s", uuid.New().String()[:8]),
		Name:                 name,
		Metal:                "gold",
		UnitPrice:            p,
		Currency:             "USD",
		StockQuantity:        stock,
		MinimumOrderQuantity: minimum,
		InStock:              stock > 0,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func buildOrder(userID uuid.UUID, items ...OrderItem) *Order {
	id := uuid.New()
	order := &Order{
		ID:          id,
		OrderNumber: NewOrderNumber(id, time.Now()),
		UserID:      userID,
		Type:        TypeBuy,
		Status:      StatusPending,
		Currency:    "USD",
	}
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = id
		items[i].TotalPrice = items[i].UnitPrice.Mul(decimal.NewFromInt(items[i].Quantity)).Round(2)
		order.Items = append(order.Items, items[i])
	}
	subtotal := decimal.Zero
	for _, item := range order.Items {
		subtotal = subtotal.Add(item.TotalPrice)
	}
	order.Subtotal = subtotal
	order.Total = subtotal
	return order
}

func productStock(t *testing.T, db *gorm.DB, productID uuid.UUID) int64 {
	t.Helper()
	var product catalog.Product
	require.NoError(t, db.Where("id = ?", productID).First(&product).Error)
	return product.StockQuantity
}
