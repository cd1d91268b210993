package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderItem represents a single line within an order. Name and image are copied from
// the cart so the line still reads well after the product changes or is deleted.
type OrderItem struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID     string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	ProductID   string          `json:"product_id" gorm:"type:varchar(36);not null"`
	ProductName string          `json:"product_name" gorm:"type:varchar(100)"`
	ImageURL    string          `json:"image_url,omitempty"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null"` // Price at the time of order
	CreatedAt   time.Time       `json:"created_at"`
}

// Subtotal is the line's price multiplied by its quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	DeliveryAddress string          `json:"delivery_address" gorm:"not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null"`
	Status          string          `json:"status" gorm:"type:varchar(20);not null"` // e.g., "pending", "processing", "shipped", "delivered", "cancelled"
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
