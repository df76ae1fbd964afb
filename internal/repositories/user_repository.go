package repositories

import (
	"context"
	"time"

	"cinema/internal/access"
	"cinema/internal/models"
)

// UserFilter narrows a user listing.
type UserFilter struct {
	Email string // substring match
	Role  access.Role
	Page
}

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Activate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	SetRole(ctx context.Context, id string, role access.Role) error
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)
}

// TokenRepository stores activation, password reset and refresh tokens.
type TokenRepository interface {
	Create(ctx context.Context, token *models.UserToken) error
	Get(ctx context.Context, kind models.TokenKind, token string) (*models.UserToken, error)
	Delete(ctx context.Context, id string) error
	DeleteForUser(ctx context.Context, kind models.TokenKind, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
