package models

import "github.com/shopspring/decimal"

// Payment is one processor-backed attempt to collect the total of an order.
type Payment struct {
	Base
	UserID            string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	OrderID           string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	Status            PaymentStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	Amount            decimal.Decimal `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency          string          `json:"currency" gorm:"type:varchar(10);not null"`
	ExternalPaymentID string          `json:"external_payment_id" gorm:"uniqueIndex;type:varchar(255);not null"`
	ExternalRefundID  *string         `json:"external_refund_id,omitempty" gorm:"type:varchar(255)"`
	Items             []PaymentItem   `json:"items"`
}

// PaymentItem mirrors an order item with the price recorded for this payment.
type PaymentItem struct {
	Base
	PaymentID      string          `json:"payment_id" gorm:"type:varchar(36);index;not null"`
	OrderItemID    string          `json:"order_item_id" gorm:"type:varchar(36);not null"`
	PriceAtPayment decimal.Decimal `json:"price_at_payment" gorm:"type:decimal(10,2);not null"`
}
