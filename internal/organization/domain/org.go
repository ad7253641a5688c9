package domain

import (
	"errors"
	"time"
)

// Org represents an organization/tenant. OrgCode is the small integer carried
// in this org's beacon advertisements, assigned from the external registry;
// 0 means no code has been assigned.
type Org struct {
	ID        string
	Slug      string
	Name      string
	OrgCode   uint16
	Status    OrgStatus
	CreatedAt time.Time
}

type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Validate validates the organization for persistence. Returns an error describing the first validation failure.
func (o *Org) Validate() error {
	if o.Slug == "" {
		return errors.New("slug is required")
	}
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrgStatusActive
	}
	return nil
}
