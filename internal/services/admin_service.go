package services

import (
	"fmt"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/shopspring/decimal"
)

const recentOrdersLimit = 5

// RecentOrder is an order listed on the dashboard with its customer's email.
type RecentOrder struct {
	models.Order
	CustomerEmail string `json:"customer_email"`
}

// DashboardStats summarises the catalog and order book.
type DashboardStats struct {
	TotalProducts    int             `json:"total_products"`
	TotalOrders      int             `json:"total_orders"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	LowStockProducts int             `json:"low_stock_products"`
	RecentOrders     []RecentOrder   `json:"recent_orders"`
}

// AdminService computes the admin dashboard.
type AdminService struct {
	productRepo       repositories.ProductRepository
	orderRepo         repositories.OrderRepository
	userRepo          repositories.UserRepository
	lowStockThreshold int
}

// NewAdminService creates an AdminService. Products with stock at or below
// lowStockThreshold count as low stock.
func NewAdminService(productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository, userRepo repositories.UserRepository, lowStockThreshold int) *AdminService {
	return &AdminService{
		productRepo:       productRepo,
		orderRepo:         orderRepo,
		userRepo:          userRepo,
		lowStockThreshold: lowStockThreshold,
	}
}

// Stats gathers the dashboard figures.
func (s *AdminService) Stats() (*DashboardStats, error) {
	products, err := s.productRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load products for stats: %w", err)
	}
	orders, err := s.orderRepo.GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load orders for stats: %w", err)
	}

	stats := &DashboardStats{
		TotalProducts: len(products),
		TotalOrders:   len(orders),
		TotalRevenue:  decimal.Zero,
		RecentOrders:  []RecentOrder{},
	}
	for _, p := range products {
		if p.Stock <= s.lowStockThreshold {
			stats.LowStockProducts++
		}
	}
	for _, o := range orders {
		stats.TotalRevenue = stats.TotalRevenue.Add(o.TotalAmount)
	}

	// Repositories return orders newest first.
	for i := 0; i < len(orders) && i < recentOrdersLimit; i++ {
		recent := RecentOrder{Order: orders[i], CustomerEmail: "Unknown"}
		if user, err := s.userRepo.GetByID(orders[i].UserID); err == nil {
			recent.CustomerEmail = user.Email
		}
		stats.RecentOrders = append(stats.RecentOrders, recent)
	}
	return stats, nil
}
