package handlers

import (
	"warranty/internal/middleware"
	"warranty/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, g Guards) {
	router.Post("/login", g.RateLimit, h.HandleLogin)
	router.Post("/update_password", g.Auth, h.HandleUpdatePassword)
	router.Post("/update_temp_password", g.Auth, h.HandleUpdateTempPassword)
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Email and password are required.")
	}

	token, user, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// UpdatePasswordRequest represents the request body for a password change.
type UpdatePasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// HandleUpdatePassword replaces the caller's password.
func (h *AuthHandler) HandleUpdatePassword(c *fiber.Ctx) error {
	var req UpdatePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Email and new password are required.")
	}
	if err := middleware.RequireSelfOrAdmin(c, req.Email); err != nil {
		return err
	}

	if err := h.authService.UpdatePassword(c.UserContext(), req.Email, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully."})
}

// TempPasswordRequest represents the request body for a password reset.
type TempPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// HandleUpdateTempPassword issues a fresh temporary password.
func (h *AuthHandler) HandleUpdateTempPassword(c *fiber.Ctx) error {
	var req TempPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.validate.Struct(req); err != nil {
		return validationError(err, "Email is required.")
	}
	if err := middleware.RequireSelfOrAdmin(c, req.Email); err != nil {
		return err
	}

	plain, err := h.authService.IssueTemporaryPassword(c.UserContext(), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":       "Temporary password updated successfully.",
		"temp_password": plain,
	})
}
