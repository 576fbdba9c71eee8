package model

import (
	"time"
)

// PropertyStatus is the coarse availability of a leased unit.
type PropertyStatus string

const (
	PropertyStatusDraft    PropertyStatus = "draft"
	PropertyStatusVacant   PropertyStatus = "vacant"
	PropertyStatusReserved PropertyStatus = "reserved"
	PropertyStatusLeased   PropertyStatus = "leased"
	PropertyStatusHidden   PropertyStatus = "hidden"
)

// Property represents a leasable unit. Its status is a projection
// recomputed from the latest Booking/Contract facts; the workflow is
// the only writer.
type Property struct {
	ID         string         `json:"id" gorm:"primaryKey;type:varchar(40)"`
	Title      string         `json:"title" gorm:"type:varchar(255);not null"`
	Address    string         `json:"address" gorm:"type:varchar(500)"`
	LandlordID string         `json:"landlord_id" gorm:"type:varchar(40);index;not null"`
	Rent       float64        `json:"rent"`
	Currency   string         `json:"currency" gorm:"type:varchar(3);default:'OMR'"`
	Status     PropertyStatus `json:"status" gorm:"type:varchar(20);not null;default:'draft'"`
	Version    int64          `json:"version" gorm:"not null;default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Visible reports whether the unit participates in the workflow at all.
// Draft and hidden units are administrative and never engaged.
func (p *Property) Visible() bool {
	return p.Status != PropertyStatusDraft && p.Status != PropertyStatusHidden
}

// Available reports whether a new booking may be taken on the unit.
func (p *Property) Available() bool {
	return p.Status == PropertyStatusVacant
}
