package models

import "time"

// Cart is the single pre-purchase selection of a user.
type Cart struct {
	Base
	UserID string     `json:"user_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	Items  []CartItem `json:"items"`
}

// CartItem references a movie placed in a cart.
type CartItem struct {
	Base
	CartID  string    `json:"cart_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_movie;not null"`
	MovieID string    `json:"movie_id" gorm:"type:varchar(36);uniqueIndex:idx_cart_movie;not null"`
	Movie   *Movie    `json:"movie,omitempty"`
	AddedAt time.Time `json:"added_at" gorm:"autoCreateTime"`
}
