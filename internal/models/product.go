package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a product in the store.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(100)" validate:"required,min=1,max=100"`
	Description string          `json:"description" validate:"required,max=500"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2)" validate:"required,gt=0"`
	Stock       int             `json:"stock_quantity" validate:"gte=0"`
	Category    string          `json:"category" gorm:"type:varchar(100);index" validate:"required,max=100"`
	ImageURL    string          `json:"image_url,omitempty" validate:"omitempty,url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.Stock > 0
}
