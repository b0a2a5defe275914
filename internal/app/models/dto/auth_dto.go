package dto

import "github.com/yigit/engnotes/internal/app/models"

// LoginRequest represents login credentials; accepted as JSON or form data.
type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// RegisterRequest represents a user registration request
type RegisterRequest struct {
	Username string          `json:"username" form:"username" binding:"required,min=3,max=50"`
	Password string          `json:"password" form:"password" binding:"required,min=6"`
	Role     models.RoleType `json:"role" form:"role" binding:"omitempty,oneof=admin user"`
}

// UserResponse represents basic user information
type UserResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// AuthResponse is returned by register; the token itself travels in the cookie.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	ExpiresIn int          `json:"expiresIn"`
}

// NewUserResponse maps a user onto its public fields.
func NewUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Role:     string(user.Role),
	}
}
