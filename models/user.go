package models

import (
	"time"

	"gorm.io/gorm"
)

// Role values for User.Role
const (
	RoleAdmin = "admin"
	RoleBaker = "baker"
)

// User represents a user in the system (admin or baker)
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0_id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'baker'" json:"role"` // "admin" or "baker"
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsBaker reports whether the user holds the baker role
func (u *User) IsBaker() bool {
	return u.Role == RoleBaker
}
