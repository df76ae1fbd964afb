package models

import "github.com/shopspring/decimal"

// Order is the immutable snapshot of a cart at purchase time; only Status changes.
type Order struct {
	Base
	UserID      string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Status      OrderStatus     `json:"status" gorm:"type:varchar(20);index;not null"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(10,2);not null"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem is a purchased movie with the price frozen at order time.
type OrderItem struct {
	Base
	OrderID      string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	MovieID      string          `json:"movie_id" gorm:"type:varchar(36);index;not null"`
	Movie        *Movie          `json:"movie,omitempty"`
	PriceAtOrder decimal.Decimal `json:"price_at_order" gorm:"type:decimal(10,2);not null"`
}
