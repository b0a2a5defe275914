package models

import (
	"time"
)

// User is an account allowed to log in; admins manage the catalog.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username" validate:"required,min=3,max=50"`
	Password  string    `json:"-" db:"password"`
	Role      RoleType  `json:"role" db:"role" validate:"required,oneof=admin user"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user may manage the catalog.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
