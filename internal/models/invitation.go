package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationType decides whether an invitation can carry an organization.
type InvitationType string

const (
	InvitationTypeInternal InvitationType = "INTERNAL"
	InvitationTypeClient   InvitationType = "CLIENT"
)

// InvitationStatus is maintained lazily; see invitations.Service.List.
type InvitationStatus string

const (
	InvitationStatusPending InvitationStatus = "PENDING"
	InvitationStatusExpired InvitationStatus = "EXPIRED"
)

// Invitation is a single-use, time-bounded right to create an account.
// Email is the natural key: at most one invitation exists per address.
type Invitation struct {
	Email            string           `json:"email"`
	Role             Role             `json:"role"`
	Type             InvitationType   `json:"type"`
	OrganizationID   *uuid.UUID       `json:"organization_id,omitempty"`
	OrganizationName string           `json:"organization_name,omitempty"`
	Token            string           `json:"-"`
	Status           InvitationStatus `json:"status"`
	CreatedBy        string           `json:"created_by"`
	CreatedAt        time.Time        `json:"created_at"`
	ExpiresAt        time.Time        `json:"expires_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// IsExpired reports whether the deadline has passed at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// InvitationPublic is what an unauthenticated invite page may see.
type InvitationPublic struct {
	Email            string    `json:"email"`
	Role             Role      `json:"role"`
	OrganizationName string    `json:"organization_name,omitempty"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// ToPublic strips issuer and token details.
func (i *Invitation) ToPublic() InvitationPublic {
	return InvitationPublic{
		Email:            i.Email,
		Role:             i.Role,
		OrganizationName: i.OrganizationName,
		ExpiresAt:        i.ExpiresAt,
	}
}
