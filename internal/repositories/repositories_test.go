package repositories_test

import (
	"fmt"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type stores struct {
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	users    repositories.UserRepository
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// forEachStore runs fn against the in-memory and the GORM implementations.
func forEachStore(t *testing.T, fn func(t *testing.T, s stores)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, stores{
			products: repositories.NewMemoryProductRepository(),
			orders:   repositories.NewMemoryOrderRepository(),
			users:    repositories.NewMemoryUserRepository(),
		})
	})
	t.Run("gorm", func(t *testing.T) {
		db := openSQLite(t)
		fn(t, stores{
			products: repositories.NewGORMProductRepository(db),
			orders:   repositories.NewGORMOrderRepository(db),
			users:    repositories.NewGORMUserRepository(db),
		})
	})
}

func newProduct(name string, stock int) *models.Product {
	return &models.Product{
		Name:        name,
		Description: name + " description",
		Price:       decimal.RequireFromString("10.00"),
		Stock:       stock,
		Category:    "Test",
	}
}

func TestProductRepository_CRUD(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		keyboard := newProduct("Keyboard", 5)
		require.NoError(t, s.products.Create(keyboard))
		assert.NotEmpty(t, keyboard.ID)
		require.NoError(t, s.products.Create(newProduct("Adapter", 1)))

		all, err := s.products.GetAll()
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Adapter", all[0].Name)

		keyboard.Name = "Mechanical Keyboard"
		keyboard.Price = decimal.RequireFromString("12.50")
		require.NoError(t, s.products.Update(keyboard))
		got, err := s.products.GetByID(keyboard.ID)
		require.NoError(t, err)
		assert.Equal(t, "Mechanical Keyboard", got.Name)
		assert.True(t, decimal.RequireFromString("12.50").Equal(got.Price))

		require.NoError(t, s.products.Delete(keyboard.ID))
		_, err = s.products.GetByID(keyboard.ID)
		assert.ErrorIs(t, err, repositories.ErrNotFound)
		assert.ErrorIs(t, s.products.Delete(keyboard.ID), repositories.ErrNotFound)
		assert.ErrorIs(t, s.products.Update(&models.Product{ID: "missing", Name: "x"}), repositories.ErrNotFound)
	})
}

func TestProductRepository_SetStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		p := newProduct("Cable", 5)
		require.NoError(t, s.products.Create(p))

		require.NoError(t, s.products.SetStock(p.ID, 2))
		got, err := s.products.GetByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Stock)

		// absolute writes do not look at the stored value
		require.NoError(t, s.products.SetStock(p.ID, 4))
		got, err = s.products.GetByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, got.Stock)

		assert.ErrorIs(t, s.products.SetStock("missing", 1), repositories.ErrNotFound)
	})
}

func TestProductRepository_DecrementStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		p := newProduct("Cable", 3)
		require.NoError(t, s.products.Create(p))

		require.NoError(t, s.products.DecrementStock(p.ID, 2))
		err := s.products.DecrementStock(p.ID, 2)
		assert.ErrorIs(t, err, repositories.ErrInsufficientStock)
		require.NoError(t, s.products.DecrementStock(p.ID, 1))

		got, err := s.products.GetByID(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Stock)

		assert.ErrorIs(t, s.products.DecrementStock("missing", 1), repositories.ErrNotFound)
	})
}

func TestOrderRepository_CreateAndRead(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		first := &models.Order{UserID: "u1", DeliveryAddress: "1 First Street", TotalAmount: decimal.RequireFromString("25.00"), Status: models.OrderStatusPending}
		require.NoError(t, s.orders.Create(first))
		assert.NotEmpty(t, first.ID)

		items := []models.OrderItem{
			{OrderID: first.ID, ProductID: "p1", ProductName: "Keyboard", ImageURL: "https://cdn.example.com/kb.png", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{OrderID: first.ID, ProductID: "p2", ProductName: "Cable", Quantity: 1, Price: decimal.RequireFromString("5.00")},
		}
		require.NoError(t, s.orders.CreateItems(items))
		assert.NotEmpty(t, items[0].ID)

		time.Sleep(10 * time.Millisecond)
		second := &models.Order{UserID: "u1", DeliveryAddress: "1 First Street", TotalAmount: decimal.RequireFromString("5.00"), Status: models.OrderStatusPending}
		require.NoError(t, s.orders.Create(second))
		other := &models.Order{UserID: "u2", DeliveryAddress: "2 Second Street", TotalAmount: decimal.RequireFromString("1.00"), Status: models.OrderStatusPending}
		require.NoError(t, s.orders.Create(other))

		got, err := s.orders.GetByID(first.ID)
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
		sum := decimal.Zero
		for _, item := range got.Items {
			sum = sum.Add(item.Subtotal())
		}
		assert.True(t, sum.Equal(got.TotalAmount))

		mine, err := s.orders.GetByUserID("u1")
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, second.ID, mine[0].ID)
		assert.Equal(t, first.ID, mine[1].ID)
		require.Len(t, mine[1].Items, 2)
		byProduct := map[string]models.OrderItem{}
		for _, item := range mine[1].Items {
			byProduct[item.ProductID] = item
		}
		assert.Equal(t, "Keyboard", byProduct["p1"].ProductName)
		assert.Equal(t, "https://cdn.example.com/kb.png", byProduct["p1"].ImageURL)
		assert.Equal(t, "Cable", byProduct["p2"].ProductName)
		assert.Empty(t, byProduct["p2"].ImageURL)

		all, err := s.orders.GetAll()
		require.NoError(t, err)
		assert.Len(t, all, 3)

		_, err = s.orders.GetByID("missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}

func TestOrderRepository_HeaderWithoutLines(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		order := &models.Order{
			UserID:          "u1",
			DeliveryAddress: "1 First Street",
			TotalAmount:     decimal.RequireFromString("10.00"),
			Status:          models.OrderStatusPending,
			Items:           []models.OrderItem{{ProductID: "p1", Quantity: 1, Price: decimal.RequireFromString("10.00")}},
		}
		require.NoError(t, s.orders.Create(order))

		got, err := s.orders.GetByID(order.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Items)
	})
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		order := &models.Order{UserID: "u1", DeliveryAddress: "1 First Street", TotalAmount: decimal.RequireFromString("10.00"), Status: models.OrderStatusPending}
		require.NoError(t, s.orders.Create(order))

		require.NoError(t, s.orders.UpdateStatus(order.ID, models.OrderStatusShipped))
		got, err := s.orders.GetByID(order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, got.Status)

		assert.ErrorIs(t, s.orders.UpdateStatus("missing", models.OrderStatusShipped), repositories.ErrNotFound)
	})
}

func TestUserRepository(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		user := &models.User{Username: "jane", Email: "jane@example.com", Password: "hash", Role: models.RoleUser}
		require.NoError(t, s.users.Create(user))
		assert.NotEmpty(t, user.ID)

		byName, err := s.users.GetByUsername("jane")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byName.ID)

		byEmail, err := s.users.GetByEmail("jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, byEmail.ID)

		byID, err := s.users.GetByID(user.ID)
		require.NoError(t, err)
		assert.Equal(t, "jane", byID.Username)

		_, err = s.users.GetByUsername("john")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})
}
