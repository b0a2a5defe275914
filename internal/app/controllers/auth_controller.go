// Package controllers handles HTTP request handling
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/engnotes/internal/app/models/dto"
	"github.com/yigit/engnotes/internal/app/services"
	"github.com/yigit/engnotes/internal/middleware"
)

// CookieConfig controls the token cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthController handles authentication related operations
type AuthController struct {
	authService *services.AuthService
	cookie      CookieConfig
	logger      zerolog.Logger
}

// NewAuthController creates a new AuthController
func NewAuthController(authService *services.AuthService, cookie CookieConfig, logger zerolog.Logger) *AuthController {
	if cookie.Name == "" {
		cookie.Name = "token"
	}
	return &AuthController{
		authService: authService,
		cookie:      cookie,
		logger:      logger,
	}
}

// Register handles user registration
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration information"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse}
// @Failure 400 {object} dto.APIResponse{error=dto.ErrorDetail}
// @Failure 409 {object} dto.APIResponse{error=dto.ErrorDetail} "Username already exists"
// @Router /auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if !middleware.BindRequest(ctx, &req) {
		c.logger.Warn().Msg("Invalid registration request payload")
		return
	}

	result, err := c.authService.Register(ctx.Request.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Registration failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.setTokenCookie(ctx, result.Token, c.authService.TokenLifetime())
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(dto.AuthResponse{
		User:      dto.NewUserResponse(result.User),
		ExpiresIn: c.authService.TokenLifetime(),
	}, "Registration successful"))
}

// Login handles user login. Admins land on the dashboard, everyone else on
// the public catalog.
// @Summary User login
// @Tags auth
// @Accept json,x-www-form-urlencoded
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 303 "Redirect to /admin or /"
// @Failure 401 {object} dto.APIResponse{error=dto.ErrorDetail} "Invalid credentials"
// @Router /auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if !middleware.BindRequest(ctx, &req) {
		c.logger.Warn().Msg("Invalid login request payload")
		return
	}

	result, err := c.authService.Login(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.logger.Warn().Err(err).Str("username", req.Username).Msg("Login failed")
		middleware.HandleAPIError(ctx, err)
		return
	}

	c.logger.Info().Str("username", result.User.Username).Msg("User logged in")
	c.setTokenCookie(ctx, result.Token, c.authService.TokenLifetime())

	target := "/"
	if result.User.IsAdmin() {
		target = "/admin"
	}
	ctx.Redirect(http.StatusSeeOther, target)
}

// Logout clears the token cookie.
// @Summary User logout
// @Tags auth
// @Success 200 {object} dto.APIResponse{data=dto.SuccessResponse}
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx *gin.Context) {
	c.setTokenCookie(ctx, "", -1)
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.SuccessResponse{Message: "Logged out"}, ""))
}

func (c *AuthController) setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(c.cookie.Name, token, maxAge, "/", "", c.cookie.Secure, true)
}
