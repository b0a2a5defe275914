package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/engnotes/internal/app/auth"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/auth"
)

// TokenValidator verifies an access token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// AuthMiddleware gates routes on the token cookie. Unauthenticated and
// non-admin requests are redirected to the login page.
type AuthMiddleware struct {
	tokens     TokenValidator
	cookieName string
	loginPath  string
	logger     zerolog.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(tokens TokenValidator, cookieName, loginPath string, logger zerolog.Logger) *AuthMiddleware {
	if cookieName == "" {
		cookieName = "token"
	}
	if loginPath == "" {
		loginPath = "/login"
	}
	return &AuthMiddleware{
		tokens:     tokens,
		cookieName: cookieName,
		loginPath:  loginPath,
		logger:     logger,
	}
}

// CookieAuth validates the token cookie and stores the principal. A bearer
// Authorization header is accepted when no cookie is present.
func (m *AuthMiddleware) CookieAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.tokenFromRequest(c)
		if token == "" {
			m.redirectToLogin(c)
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			m.logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Rejected token")
			m.redirectToLogin(c)
			return
		}

		appauth.SetPrincipal(c, &appauth.Principal{
			UserID:   claims.UserID,
			Username: claims.Username,
			Role:     models.RoleType(claims.Role),
		})
		c.Next()
	}
}

// AdminOnly must run after CookieAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := appauth.PrincipalFromContext(c)
		if err != nil || !principal.IsAdmin() {
			m.redirectToLogin(c)
			return
		}
		c.Next()
	}
}

func (m *AuthMiddleware) tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(m.cookieName); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func (m *AuthMiddleware) redirectToLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, m.loginPath)
	c.Abort()
}
