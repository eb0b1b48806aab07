package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// AuthHandler exposes login and session endpoints.
type AuthHandler struct {
	auth         *service.AuthService
	cookieName   string
	secureCookie bool
}

// NewAuthHandler constructs handler. When cookieName is set the token is
// also returned as an HTTP-only cookie.
func NewAuthHandler(authService *service.AuthService, cookieName string, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: authService, cookieName: cookieName, secureCookie: secureCookie}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, token, exp, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if h.cookieName != "" {
		c.Cookie(&fiber.Cookie{
			Name:     h.cookieName,
			Value:    token,
			Expires:  exp,
			HTTPOnly: true,
			Secure:   h.secureCookie,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"user": dto.MeResponse{
				ID:     user.ID,
				Name:   user.Name,
				Email:  user.Email,
				Role:   user.Role,
				AreaID: user.AreaID,
			},
			"auth": dto.AuthResponse{Token: token, ExpiresAt: exp},
		},
	})
}

// Logout handles POST /auth/logout by expiring the session cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if h.cookieName != "" {
		c.ClearCookie(h.cookieName)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"logged_out": true}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	return c.JSON(fiber.Map{"data": dto.MeResponse{
		ID:     user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
		AreaID: user.AreaID,
	}})
}
