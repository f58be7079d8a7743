package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationType separates the platform's own organization from clients.
type OrganizationType string

const (
	OrganizationTypeInternal OrganizationType = "INTERNAL"
	OrganizationTypeClient   OrganizationType = "CLIENT"
)

// Organization represents a tenant.
type Organization struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"organization_name"`
	Type      OrganizationType `json:"type"`
	HQCountry string           `json:"hq_country,omitempty"`
	ContactNo string           `json:"contact_no,omitempty"`
	Email     string           `json:"email,omitempty"`
	CreatedBy string           `json:"created_by,omitempty"`
	UpdatedBy string           `json:"updated_by,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}
