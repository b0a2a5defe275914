package auth

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
)

// PrincipalKey is the gin context key the auth middleware stores the caller under.
const PrincipalKey = "principal"

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID   string
	Username string
	Role     models.RoleType
}

// IsAdmin reports whether the caller may manage the catalog.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// SetPrincipal attaches the caller to the request context.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(PrincipalKey, p)
}

// PrincipalFromContext returns the caller placed by the auth middleware.
func PrincipalFromContext(c *gin.Context) (*Principal, error) {
	value, exists := c.Get(PrincipalKey)
	if !exists {
		return nil, apperrors.ErrTokenNotFound
	}
	p, ok := value.(*Principal)
	if !ok || p == nil {
		return nil, apperrors.ErrTokenInvalid
	}
	return p, nil
}

// RequireAdmin returns ErrPermissionDenied unless the caller is an admin.
func RequireAdmin(c *gin.Context) (*Principal, error) {
	p, err := PrincipalFromContext(c)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() {
		return nil, apperrors.NewForbiddenError("admin role required")
	}
	return p, nil
}
