package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cinema/internal/access"
	"cinema/internal/apperr"
	"cinema/internal/config"
	"cinema/internal/models"
	"cinema/internal/notify"
	"cinema/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"` // seconds
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo  repositories.UserRepository
	tokenRepo repositories.TokenRepository
	tx        Transactor
	publisher notify.Publisher
	cfg       config.AuthConfig
	baseURL   string
	jwtSecret []byte
	log       *zap.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	userRepo repositories.UserRepository,
	tokenRepo repositories.TokenRepository,
	tx Transactor,
	publisher notify.Publisher,
	cfg config.AuthConfig,
	baseURL string,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		tx:        tx,
		publisher: publisher,
		cfg:       cfg,
		baseURL:   baseURL,
		jwtSecret: []byte(cfg.JWTSecret),
		log:       log.Named("auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an inactive account and mails an activation link.
func (s *AuthService) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, apperr.ErrEmailTaken
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hashedPassword),
		IsActive: false,
		Role:     access.RoleUser,
	}

	var token *models.UserToken
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				return apperr.ErrEmailTaken
			}
			return fmt.Errorf("failed to register user: %w", err)
		}
		token, err = s.issueToken(ctx, user.ID, models.TokenActivation, s.cfg.ActivationTTL)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, notify.ActivationMessage(user.Email, s.baseURL, token.Token))
	s.log.Info("User registered", zap.String("user_id", user.ID))
	return user, nil
}

// Activate marks the account owning an activation token active.
func (s *AuthService) Activate(ctx context.Context, token string) error {
	t, err := s.liveToken(ctx, models.TokenActivation, token)
	if err != nil {
		return err
	}
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.Activate(ctx, t.UserID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.ErrInvalidToken
			}
			return err
		}
		return s.tokenRepo.Delete(ctx, t.ID)
	})
}

// ResendActivation issues a fresh activation link to an inactive account.
// Unknown or active accounts are ignored so callers cannot probe for emails.
func (s *AuthService) ResendActivation(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if user.IsActive {
		return nil
	}

	token, err := s.issueToken(ctx, user.ID, models.TokenActivation, s.cfg.ActivationTTL)
	if err != nil {
		return err
	}
	s.publish(ctx, notify.ActivationMessage(user.Email, s.baseURL, token.Token))
	return nil
}

// Login authenticates a user and returns an access and a refresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperr.ErrInactiveAccount
	}

	refresh := &models.UserToken{
		UserID:    user.ID,
		Kind:      models.TokenRefresh,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(s.cfg.RefreshTTL),
	}
	if err := s.tokenRepo.Create(ctx, refresh); err != nil {
		return nil, err
	}

	signed, err := s.accessToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  signed,
		RefreshToken: refresh.Token,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a live refresh token for a new access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	t, err := s.liveToken(ctx, models.TokenRefresh, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, t.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.ErrInactiveAccount
	}

	signed, err := s.accessToken(user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  signed,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
		ExpiresIn:    int64(s.cfg.AccessTTL.Seconds()),
	}, nil
}

// Logout revokes a refresh token.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	t, err := s.tokenRepo.Get(ctx, models.TokenRefresh, refreshToken)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.ErrInvalidToken
		}
		return err
	}
	return s.tokenRepo.Delete(ctx, t.ID)
}

// ChangePassword replaces the password of an authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return apperr.ErrUserNotFound
		}
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		return apperr.ErrWrongPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword))
}

// RequestPasswordReset mails a reset link when the account exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.issueToken(ctx, user.ID, models.TokenPasswordReset, s.cfg.ResetTTL)
	if err != nil {
		return err
	}
	s.publish(ctx, notify.PasswordResetMessage(user.Email, s.baseURL, token.Token))
	return nil
}

// ResetPassword sets a new password using a reset token and revokes every
// refresh token of the user.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	t, err := s.liveToken(ctx, models.TokenPasswordReset, token)
	if err != nil {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.userRepo.UpdatePassword(ctx, t.UserID, string(hashedPassword)); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return apperr.ErrInvalidToken
			}
			return err
		}
		if err := s.tokenRepo.Delete(ctx, t.ID); err != nil {
			return err
		}
		return s.tokenRepo.DeleteForUser(ctx, models.TokenRefresh, t.UserID)
	})
}

// SetRole moves a user to another group.
func (s *AuthService) SetRole(ctx context.Context, actor access.Actor, userID string, role access.Role) (*models.User, error) {
	if !actor.Can(access.ManageUsers) {
		return nil, apperr.ErrForbidden
	}
	if !role.Valid() {
		return nil, apperr.ErrValidation.With(fmt.Errorf("unknown role %q", role))
	}
	if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, err
	}
	s.log.Info("Role changed", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("by", actor.UserID))
	return s.userRepo.GetByID(ctx, userID)
}

// ListUsers returns one page of users for administrators.
func (s *AuthService) ListUsers(ctx context.Context, actor access.Actor, filter repositories.UserFilter) ([]models.User, int64, error) {
	if !actor.Can(access.ManageUsers) {
		return nil, 0, apperr.ErrForbidden
	}
	filter.Page = ListParams{Skip: filter.Offset, Limit: filter.Limit}.page()
	return s.userRepo.List(ctx, filter)
}

// Authenticate validates an access token and loads the current state of its
// user, so role changes and deactivation apply immediately.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*access.Actor, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, apperr.ErrUnauthorized.With(err)
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return nil, apperr.ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrUnauthorized
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.ErrInactiveAccount
	}
	return &access.Actor{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}

// ValidateToken parses and validates a JWT token, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (s *AuthService) accessToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"exp":   now.Add(s.cfg.AccessTTL).Unix(),
		"iat":   now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// issueToken replaces any token of the same kind held by the user.
func (s *AuthService) issueToken(ctx context.Context, userID string, kind models.TokenKind, ttl time.Duration) (*models.UserToken, error) {
	token := &models.UserToken{
		UserID:    userID,
		Kind:      kind,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokenRepo.DeleteForUser(ctx, kind, userID); err != nil {
			return err
		}
		return s.tokenRepo.Create(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	return token, nil
}

// liveToken returns an unexpired token; expired ones are removed on sight.
func (s *AuthService) liveToken(ctx context.Context, kind models.TokenKind, value string) (*models.UserToken, error) {
	t, err := s.tokenRepo.Get(ctx, kind, value)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.ErrInvalidToken
		}
		return nil, err
	}
	if t.Expired(time.Now().UTC()) {
		if err := s.tokenRepo.Delete(ctx, t.ID); err != nil {
			s.log.Warn("Failed to delete expired token", zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, apperr.ErrInvalidToken
	}
	return t, nil
}

func (s *AuthService) publish(ctx context.Context, msg notify.Message) {
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.Error("Failed to enqueue notification", zap.String("subject", msg.Subject), zap.Error(err))
	}
}
