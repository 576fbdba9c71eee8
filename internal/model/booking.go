package model

import (
	"time"
)

// BookingStatus represents the status of a reservation.
type BookingStatus string

const (
	BookingStatusAwaitingPayment BookingStatus = "awaiting_payment"
	BookingStatusPending         BookingStatus = "pending"
	BookingStatusConfirmed       BookingStatus = "confirmed"
	BookingStatusDeclined        BookingStatus = "declined"
)

// Booking records a tenant's intent to lease a property.
type Booking struct {
	ID         string        `json:"id" gorm:"primaryKey;type:varchar(40)"`
	PropertyID string        `json:"property_id" gorm:"type:varchar(40);index;not null"`
	TenantID   string        `json:"tenant_id" gorm:"type:varchar(40);index;not null"`
	Amount     float64       `json:"amount" gorm:"not null"`
	Currency   string        `json:"currency" gorm:"type:varchar(3);default:'OMR'"`
	Status     BookingStatus `json:"status" gorm:"type:varchar(20);not null;default:'awaiting_payment'"`
	Version    int64         `json:"version" gorm:"not null;default:0"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsConfirmed returns true once payment settled the booking.
func (b *Booking) IsConfirmed() bool {
	return b.Status == BookingStatusConfirmed
}

// CanDecline returns true while the booking has not been confirmed.
func (b *Booking) CanDecline() bool {
	return b.Status == BookingStatusAwaitingPayment || b.Status == BookingStatusPending
}

// Engages reports whether the booking still holds the property.
func (b *Booking) Engages() bool {
	return b.Status != BookingStatusDeclined
}
