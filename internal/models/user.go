package models

import (
	"strings"
	"time"
)

// Role is the platform role granted to an account.
type Role string

const (
	RoleAdmin        Role = "ADMIN"
	RoleCoAdmin      Role = "CO_ADMIN"
	RoleUser         Role = "USER"
	RoleSupervisor   Role = "SUPERVISOR"
	RoleDesigner     Role = "DESIGNER"
	RoleDataEngineer Role = "DATA_ENGINEER"
)

// NormalizeEmail trims and lowercases an address. Accounts and invitations
// are stored and looked up by the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Roles lists every role an invitation may grant.
var Roles = []Role{RoleAdmin, RoleCoAdmin, RoleUser, RoleSupervisor, RoleDesigner, RoleDataEngineer}

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	for _, v := range Roles {
		if r == v {
			return true
		}
	}
	return false
}

// Account is a platform user. ID is human readable (USER01, USER02, ...).
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AccountPublic is Account without credential material for API responses.
type AccountPublic struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts Account to AccountPublic.
func (a *Account) ToPublic() AccountPublic {
	return AccountPublic{
		ID:        a.ID,
		Email:     a.Email,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Role:      a.Role,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}
