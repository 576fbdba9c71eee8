package model

import (
	"time"
)

// ContractStatus represents the branching lifecycle of a lease agreement.
type ContractStatus string

const (
	ContractStatusDrafting                ContractStatus = "drafting"
	ContractStatusAwaitingTenantSign      ContractStatus = "awaiting_tenant_sign"
	ContractStatusAwaitingLandlordApprove ContractStatus = "awaiting_landlord_approve"
	ContractStatusActive                  ContractStatus = "active"
	ContractStatusRejected                ContractStatus = "rejected"
	ContractStatusTerminated              ContractStatus = "terminated"
	ContractStatusExpired                 ContractStatus = "expired"
)

// Contract is the legal agreement for a booking. TermsHTML is an
// immutable snapshot taken at generation time; revisions create a new
// Contract row with an incremented Revision, never edit the snapshot.
type Contract struct {
	ID                 string         `json:"id" gorm:"primaryKey;type:varchar(40)"`
	BookingID          string         `json:"booking_id" gorm:"type:varchar(40);index;not null"`
	PropertyID         string         `json:"property_id" gorm:"type:varchar(40);index;not null"`
	LandlordID         string         `json:"landlord_id" gorm:"type:varchar(40);not null"`
	TenantID           string         `json:"tenant_id" gorm:"type:varchar(40);not null"`
	Status             ContractStatus `json:"status" gorm:"type:varchar(30);not null;default:'drafting'"`
	Revision           int            `json:"revision" gorm:"not null;default:1"`
	TermsHTML          string         `json:"terms_html" gorm:"type:text"`
	TenantAcceptedAt   *time.Time     `json:"tenant_accepted_at,omitempty"`
	LandlordApprovedAt *time.Time     `json:"landlord_approved_at,omitempty"`
	RejectionReason    string         `json:"rejection_reason,omitempty" gorm:"type:varchar(500)"`
	Total              float64        `json:"total"`
	Paid               float64        `json:"paid"`
	Due                float64        `json:"due"`
	Version            int64          `json:"version" gorm:"not null;default:0"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// IsTerminal returns true for statuses that end this contract instance.
// Re-engagement after a terminal status requires a fresh booking and
// contract cycle.
func (c *Contract) IsTerminal() bool {
	switch c.Status {
	case ContractStatusRejected, ContractStatusTerminated, ContractStatusExpired:
		return true
	}
	return false
}

// Engages reports whether the contract still holds the property: any
// non-terminal status counts, including drafting and active.
func (c *Contract) Engages() bool {
	return !c.IsTerminal()
}

// IsActive returns true while the agreement is in force.
func (c *Contract) IsActive() bool {
	return c.Status == ContractStatusActive
}
