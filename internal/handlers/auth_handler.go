package handlers

import (
	"cinema/internal/access"
	"cinema/internal/middleware"
	"cinema/internal/repositories"
	"cinema/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler handles HTTP requests for accounts and authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, validate *validator.Validate, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validate,
		log:         log.Named("auth_handler"),
	}
}

// RegisterRoutes registers the authentication and user admin routes. The
// auth middleware guards the routes that need a signed-in user.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/refresh", h.HandleRefresh)
	authRoutes.Post("/logout", h.HandleLogout)
	authRoutes.Get("/activate/:token", h.HandleActivate)
	authRoutes.Post("/activate/resend", h.HandleResendActivation)
	authRoutes.Post("/password/reset/request", h.HandleRequestPasswordReset)
	authRoutes.Post("/password/reset/:token", h.HandleResetPassword)
	authRoutes.Post("/password/change", auth, h.HandleChangePassword)
	authRoutes.Post("/set-role", auth, middleware.RequireCapability(access.ManageUsers), h.HandleSetRole)

	router.Get("/users", auth, middleware.RequireCapability(access.ManageUsers), h.HandleListUsers)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strongpassword"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	user, err := h.authService.Register(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Check your email to activate the account.",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	tokens, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(tokens)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	tokens, err := h.authService.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(tokens)
}

func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	var req refreshRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.authService.Logout(c.UserContext(), req.RefreshToken); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

func (h *AuthHandler) HandleActivate(c *fiber.Ctx) error {
	if err := h.authService.Activate(c.UserContext(), c.Params("token")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Account activated successfully"})
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// HandleResendActivation answers the same way whether or not the account exists.
func (h *AuthHandler) HandleResendActivation(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.authService.ResendActivation(c.UserContext(), req.Email); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "If the account exists and is inactive, an activation email has been sent"})
}

// HandleRequestPasswordReset answers the same way whether or not the account exists.
func (h *AuthHandler) HandleRequestPasswordReset(c *fiber.Ctx) error {
	var req emailRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "If the account exists, a password reset email has been sent"})
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,strongpassword"`
}

func (h *AuthHandler) HandleResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	if err := h.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password has been reset"})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,strongpassword"`
}

func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	actor := middleware.ActorFrom(c)
	if err := h.authService.ChangePassword(c.UserContext(), actor.UserID, req.OldPassword, req.NewPassword); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

type setRoleRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"required,oneof=USER MODERATOR ADMIN"`
}

func (h *AuthHandler) HandleSetRole(c *fiber.Ctx) error {
	var req setRoleRequest
	if err := bind(c, h.validate, &req); err != nil {
		return writeError(c, h.log, err)
	}

	user, err := h.authService.SetRole(c.UserContext(), middleware.ActorFrom(c), req.UserID, access.Role(req.Role))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(user)
}

// HandleListUsers lists accounts filtered by email substring and role.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	_, params, err := parseList(c, h.validate)
	if err != nil {
		return writeError(c, h.log, err)
	}

	filter := repositories.UserFilter{
		Email: c.Query("email"),
		Page:  repositories.Page{Offset: params.Skip, Limit: params.Limit},
	}
	if role := c.Query("role"); role != "" {
		r, err := access.ParseRole(role)
		if err != nil {
			return writeError(c, h.log, &validationFailure{fields: map[string]string{"role": err.Error()}})
		}
		filter.Role = r
	}

	users, total, err := h.authService.ListUsers(c.UserContext(), middleware.ActorFrom(c), filter)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(page(total, "users", users))
}
