// Package dbtest opens throwaway SQLite databases carrying the tables used by
// repository and service tests.
package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/cookerz-backend/pkg/db/models"
	"github.com/angelmondragon/cookerz-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  display_name TEXT NOT NULL,
  phone TEXT,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE cookers (
  id TEXT PRIMARY KEY,
  kitchen_name TEXT NOT NULL,
  bio TEXT,
  is_open INTEGER NOT NULL DEFAULT 0,
  address TEXT,
  rating_average NUMERIC NOT NULL DEFAULT 0,
  rating_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE platform_settings (
  id INTEGER PRIMARY KEY CHECK (id = 1),
  platform_commission_pct NUMERIC NOT NULL,
  chef_commission_pct NUMERIC NOT NULL,
  service_fee NUMERIC NOT NULL,
  default_delivery_fee NUMERIC NOT NULL,
  free_delivery_threshold NUMERIC,
  updated_at DATETIME,
  updated_by TEXT
)`,
	`CREATE TABLE menu_items (
  id TEXT PRIMARY KEY,
  cooker_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  profit NUMERIC NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  is_available INTEGER NOT NULL DEFAULT 1,
  prep_time_minutes INTEGER NOT NULL DEFAULT 0,
  category TEXT NOT NULL DEFAULT '',
  image_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  cooker_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  delivery_partner_id TEXT,
  status TEXT NOT NULL,
  subtotal NUMERIC NOT NULL,
  delivery_fee NUMERIC NOT NULL,
  discount NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  platform_commission NUMERIC NOT NULL,
  cooker_payout NUMERIC NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  notes TEXT,
  address TEXT NOT NULL,
  delivered_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
)`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  menu_item_id TEXT NOT NULL,
  title TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  created_at DATETIME
)`,
	`CREATE TABLE reviews (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE,
  cooker_id TEXT NOT NULL,
  customer_id TEXT NOT NULL,
  rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
  comment TEXT,
  created_at DATETIME
)`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  source_table TEXT NOT NULL,
  op TEXT NOT NULL,
  row_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
)`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  source_table TEXT NOT NULL,
  op TEXT NOT NULL,
  row_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
)`,
}

// Open returns an isolated in-memory database with the full schema applied.
// A single connection is used so transactions never contend on the shared cache.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:cookerz_" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// Dec parses a decimal literal or fails the test.
func Dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

// SeedSettings writes the singleton settings row.
func SeedSettings(t *testing.T, conn *gorm.DB, settings models.PlatformSettings) models.PlatformSettings {
	t.Helper()
	settings.ID = models.PlatformSettingsID
	require.NoError(t, conn.Create(&settings).Error)
	return settings
}

// DefaultSettings mirrors the seed row of the production migration.
func DefaultSettings(t *testing.T) models.PlatformSettings {
	threshold := Dec(t, "150")
	return models.PlatformSettings{
		ID:                    models.PlatformSettingsID,
		PlatformCommissionPct: Dec(t, "10"),
		ChefCommissionPct:     Dec(t, "15"),
		ServiceFee:            Dec(t, "0"),
		DefaultDeliveryFee:    Dec(t, "20"),
		FreeDeliveryThreshold: &threshold,
	}
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	user := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "hash",
		DisplayName:  string(role) + " user",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(&user).Error)
	return user
}

// SeedCooker inserts a cooker user and its open kitchen profile.
func SeedCooker(t *testing.T, conn *gorm.DB) models.Cooker {
	t.Helper()
	user := SeedUser(t, conn, enums.UserRoleCooker)
	cooker := models.Cooker{ID: user.ID, KitchenName: "Kitchen " + user.ID.String()[:8], IsOpen: true}
	require.NoError(t, conn.Create(&cooker).Error)
	return cooker
}

// SeedMenuItem inserts an available menu item for the cooker.
func SeedMenuItem(t *testing.T, conn *gorm.DB, cookerID uuid.UUID, price, profit string, stock int) models.MenuItem {
	t.Helper()
	item := models.MenuItem{
		CookerID:        cookerID,
		Title:           "Dish " + uuid.NewString()[:6],
		Price:           Dec(t, price),
		Profit:          Dec(t, profit),
		Stock:           stock,
		IsAvailable:     true,
		PrepTimeMinutes: 20,
		Category:        "mains",
	}
	require.NoError(t, conn.Create(&item).Error)
	return item
}

// SeedOrder inserts an order in the given status with one item per menu item
// and quantity pair. Totals are derived from the item prices with no delivery fee.
func SeedOrder(t *testing.T, conn *gorm.DB, customerID uuid.UUID, status enums.OrderStatus, createdAt time.Time, lines ...OrderLine) models.Order {
	t.Helper()
	require.NotEmpty(t, lines, "order needs at least one line")

	subtotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		subtotal = subtotal.Add(line.Item.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		items = append(items, models.OrderItem{
			MenuItemID: line.Item.ID,
			Title:      line.Item.Title,
			UnitPrice:  line.Item.Price,
			Quantity:   line.Quantity,
			CreatedAt:  createdAt,
		})
	}
	order := models.Order{
		CookerID:           lines[0].Item.CookerID,
		CustomerID:         customerID,
		Status:             status,
		Subtotal:           subtotal,
		DeliveryFee:        decimal.Zero,
		Discount:           decimal.Zero,
		Total:              subtotal,
		PlatformCommission: decimal.Zero,
		CookerPayout:       subtotal,
		PaymentMethod:      enums.PaymentMethodCash,
		PaymentStatus:      enums.PaymentStatusPending,
		Address:            "1 Test Street",
		Items:              items,
		CreatedAt:          createdAt,
		UpdatedAt:          createdAt,
	}
	require.NoError(t, conn.Create(&order).Error)
	return order
}

// OrderLine pairs a seeded menu item with a quantity.
type OrderLine struct {
	Item     models.MenuItem
	Quantity int
}
