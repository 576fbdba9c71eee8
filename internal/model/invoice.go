package model

import (
	"time"
)

// InvoiceStatus represents the settlement status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusUnpaid   InvoiceStatus = "unpaid"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// Invoice tracks the amount owed for a reservation. "paid" is monotonic:
// it is reached only by an explicit status update and never reverted.
type Invoice struct {
	ID            string        `json:"id" gorm:"primaryKey;type:varchar(40)"`
	ReservationID string        `json:"reservation_id" gorm:"type:varchar(40);index;not null"`
	PropertyID    string        `json:"property_id" gorm:"type:varchar(40);index;not null"`
	Amount        float64       `json:"amount" gorm:"not null"`
	Currency      string        `json:"currency" gorm:"type:varchar(3);default:'OMR'"`
	Status        InvoiceStatus `json:"status" gorm:"type:varchar(20);not null;default:'unpaid'"`
	DueDate       time.Time     `json:"due_date"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	Version       int64         `json:"version" gorm:"not null;default:0"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// IsOpen returns true while the invoice can still be settled or canceled.
func (i *Invoice) IsOpen() bool {
	return i.Status == InvoiceStatusUnpaid
}
