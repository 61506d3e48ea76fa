// Package models holds the domain types of the service and their outward
// projections.
package models

import (
	"time"

	"github.com/dmitrijs2005/voucher-auth/internal/server/preferences"
)

type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleMerchant Role = "MERCHANT"
	RoleCustomer Role = "CUSTOMER"
)

// Roles lists the accepted roles, for validation rules.
var Roles = []any{RoleAdmin, RoleMerchant, RoleCustomer}

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleMerchant, RoleCustomer:
		return true
	}
	return false
}

// User is the persisted account. PasswordHash and VerificationCode never
// leave the service; use ToDTO for anything outward facing.
type User struct {
	ID               string
	Email            string
	Username         string
	PasswordHash     string
	Role             Role
	Active           bool
	Verified         bool
	VerificationCode string
	Preferences      preferences.Set
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LastLoginAt      *time.Time
}

// UserDTO is the outward projection of a User.
type UserDTO struct {
	UserID      string     `json:"userID"`
	Email       string     `json:"email"`
	Username    string     `json:"username"`
	Role        Role       `json:"role"`
	Active      bool       `json:"active"`
	Verified    bool       `json:"verified"`
	Preferences []string   `json:"preferences"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) ToDTO() UserDTO {
	return UserDTO{
		UserID:      u.ID,
		Email:       u.Email,
		Username:    u.Username,
		Role:        u.Role,
		Active:      u.Active,
		Verified:    u.Verified,
		Preferences: u.Preferences.Slice(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

func ToDTOs(users []*User) []UserDTO {
	out := make([]UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, u.ToDTO())
	}
	return out
}
