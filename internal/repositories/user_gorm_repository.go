package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cinema/internal/access"
	"cinema/internal/models"

	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db *gorm.DB
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
func NewGORMUserRepository(db *gorm.DB) *GORMUserRepository {
	return &GORMUserRepository{
		db: db,
	}
}

// Create creates a new user in the database.
func (r *GORMUserRepository) Create(ctx context.Context, user *models.User) error {
	if err := conn(ctx, r.db).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

// GetByEmail retrieves a user by their email from the database.
func (r *GORMUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translate(err))
	}
	return &user, nil
}

// GetByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := conn(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by ID %s: %w", id, translate(err))
	}
	return &user, nil
}

func (r *GORMUserRepository) Activate(ctx context.Context, id string) error {
	return r.update(ctx, id, "is_active", true)
}

func (r *GORMUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.update(ctx, id, "hashed_password", hash)
}

func (r *GORMUserRepository) SetRole(ctx context.Context, id string, role access.Role) error {
	return r.update(ctx, id, "role", role)
}

func (r *GORMUserRepository) update(ctx context.Context, id, column string, value interface{}) error {
	res := conn(ctx, r.db).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s of user %s: %w", column, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// List returns one page of users matching filter and the total match count.
func (r *GORMUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	q := conn(ctx, r.db).Model(&models.User{})
	if filter.Email != "" {
		q = q.Where("LOWER(email) LIKE ?", "%"+strings.ToLower(filter.Email)+"%")
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	if err := paginate(q, filter.Page).Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// GORMTokenRepository is a GORM implementation of TokenRepository.
type GORMTokenRepository struct {
	db *gorm.DB
}

// NewGORMTokenRepository creates a new instance of GORMTokenRepository.
func NewGORMTokenRepository(db *gorm.DB) *GORMTokenRepository {
	return &GORMTokenRepository{db: db}
}

func (r *GORMTokenRepository) Create(ctx context.Context, token *models.UserToken) error {
	if err := conn(ctx, r.db).Create(token).Error; err != nil {
		return fmt.Errorf("failed to create %s token: %w", token.Kind, translate(err))
	}
	return nil
}

func (r *GORMTokenRepository) Get(ctx context.Context, kind models.TokenKind, token string) (*models.UserToken, error) {
	var t models.UserToken
	if err := conn(ctx, r.db).First(&t, "kind = ? AND token = ?", kind, token).Error; err != nil {
		return nil, fmt.Errorf("failed to get %s token: %w", kind, translate(err))
	}
	return &t, nil
}

func (r *GORMTokenRepository) Delete(ctx context.Context, id string) error {
	res := conn(ctx, r.db).Delete(&models.UserToken{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("token %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *GORMTokenRepository) DeleteForUser(ctx context.Context, kind models.TokenKind, userID string) error {
	if err := conn(ctx, r.db).Delete(&models.UserToken{}, "kind = ? AND user_id = ?", kind, userID).Error; err != nil {
		return fmt.Errorf("failed to delete %s tokens of user %s: %w", kind, userID, err)
	}
	return nil
}

// DeleteExpired removes every token that expired at or before now.
func (r *GORMTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := conn(ctx, r.db).Delete(&models.UserToken{}, "expires_at <= ?", now)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
