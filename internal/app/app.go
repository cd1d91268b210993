// Package app assembles the storefront service from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/cart"
	"storefront/internal/config"
	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"
	"storefront/pkg/rabbitmq"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var _ services.EventPublisher = (*rabbitmq.Client)(nil)

// App is a fully wired storefront.
type App struct {
	Fiber *fiber.App

	cfg         config.Config
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
	userRepo    repositories.UserRepository
	carts       *cart.Registry
	mq          *rabbitmq.Client
	redis       *redis.Client
	closers     []func() error
}

// New builds the repositories, integrations, services and routes described by cfg.
// RabbitMQ and Redis are optional: when configured but unreachable the service starts
// without them.
func New(cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	if err := a.openStore(); err != nil {
		return nil, err
	}

	var persister cart.Persister
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, a.redis.Close)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			zap.L().Warn("redis not reachable, carts may not survive restarts", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		cancel()
		persister = cart.NewRedisPersister(a.redis, cart.RedisPersisterConfig{TTL: cfg.CartTTL})
	}
	a.carts = cart.NewRegistry(persister)

	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mq, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			zap.L().Warn("RabbitMQ not available, order events disabled", zap.Error(err))
		} else {
			a.mq = mq
			a.closers = append(a.closers, mq.Close)
			publisher = mq
			if err := mq.ConsumeOrderEvents(rabbitmq.HandleOrderMessage); err != nil {
				zap.L().Warn("failed to start order event consumer", zap.Error(err))
			}
		}
	}

	stockMode := services.StockOverwrite
	if cfg.StockUpdateMode == config.StockModeConditional {
		stockMode = services.StockConditional
	}

	productService := services.NewProductService(a.productRepo)
	authService := services.NewAuthService(a.userRepo, cfg.JWTSecret, cfg.TokenTTL)
	checkoutService := services.NewCheckoutService(a.orderRepo, a.productRepo, publisher, stockMode)
	orderService := services.NewOrderService(a.orderRepo, publisher)
	adminService := services.NewAdminService(a.productRepo, a.orderRepo, a.userRepo, cfg.LowStockThreshold)

	if cfg.AdminUsername != "" {
		if err := authService.EnsureAdmin(cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to ensure admin user: %w", err)
		}
	}

	if cfg.SeedCatalog {
		if err := a.SeedCatalog(); err != nil {
			a.Close()
			return nil, err
		}
	}

	app := fiber.New(fiber.Config{AppName: "storefront"})
	app.Use(fiberlogger.New())

	app.Get("/health", a.handleHealth)

	authRequired := middleware.AuthRequired(authService)
	apiV1 := app.Group("/api/v1")

	// Public routes go first: the authenticated group below guards every later /api/v1 route.
	handlers.NewAuthHandler(authService, a.carts).RegisterRoutes(apiV1, authRequired)
	handlers.NewProductHandler(productService).RegisterRoutes(apiV1, authRequired, middleware.AdminRequired())

	protected := apiV1.Group("", authRequired)
	handlers.NewCartHandler(a.carts, productService).RegisterRoutes(protected)
	handlers.NewCheckoutHandler(checkoutService, a.carts).RegisterRoutes(protected)
	handlers.NewOrderHandler(orderService).RegisterRoutes(protected)

	admin := protected.Group("/admin", middleware.AdminRequired())
	handlers.NewAdminHandler(adminService, orderService).RegisterRoutes(admin)

	a.Fiber = app
	return a, nil
}

func (a *App) openStore() error {
	if a.cfg.DBDriver == config.DriverMemory {
		a.productRepo = repositories.NewMemoryProductRepository()
		a.orderRepo = repositories.NewMemoryOrderRepository()
		a.userRepo = repositories.NewMemoryUserRepository()
		return nil
	}

	var dialector gorm.Dialector
	switch a.cfg.DBDriver {
	case config.DriverPostgres:
		dialector = postgres.Open(a.cfg.DatabaseDSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(a.cfg.DatabaseDSN)
	default:
		return fmt.Errorf("unsupported database driver %q", a.cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.User{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}

	a.productRepo = repositories.NewGORMProductRepository(db)
	a.orderRepo = repositories.NewGORMOrderRepository(db)
	a.userRepo = repositories.NewGORMUserRepository(db)
	return nil
}

func (a *App) handleHealth(c *fiber.Ctx) error {
	status := fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Format(time.RFC3339),
		"rabbitmq": "disabled",
		"redis":    "disabled",
	}
	if a.mq != nil {
		status["rabbitmq"] = "connected"
	}
	if a.redis != nil {
		status["redis"] = "connected"
		if err := a.redis.Ping(c.UserContext()).Err(); err != nil {
			status["redis"] = "unreachable"
		}
	}
	return c.JSON(status)
}

// SeedCatalog creates a few demo products when the catalog is empty.
func (a *App) SeedCatalog() error {
	existing, err := a.productRepo.GetAll()
	if err != nil {
		return fmt.Errorf("failed to check catalog before seeding: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	products := []models.Product{
		{Name: "Laptop", Description: "High performance laptop", Price: decimal.NewFromInt(1200), Stock: 10, Category: "Electronics"},
		{Name: "Keyboard", Description: "Mechanical keyboard", Price: decimal.NewFromInt(75), Stock: 25, Category: "Accessories"},
		{Name: "Mouse", Description: "Ergonomic wireless mouse", Price: decimal.NewFromInt(25), Stock: 50, Category: "Accessories"},
	}
	for i := range products {
		if err := a.productRepo.Create(&products[i]); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		zap.L().Info("seeded product", zap.String("name", products[i].Name), zap.String("id", products[i].ID))
	}
	return nil
}

// Listen serves HTTP on the configured port until Shutdown is called.
func (a *App) Listen() error {
	return a.Fiber.Listen(a.cfg.AppPort)
}

// Shutdown stops the HTTP server and releases every integration.
func (a *App) Shutdown() error {
	err := a.Fiber.Shutdown()
	return errors.Join(err, a.Close())
}

// Close releases the database, Redis and RabbitMQ connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
