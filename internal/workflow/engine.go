package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lease-service/internal/external"
	"lease-service/internal/model"
	"lease-service/prometheus"
)

// Engine applies workflow transitions. Every operation runs as one
// transaction: read aggregate, validate, write updated aggregate plus
// fan-out, so a transition either fully commits or leaves nothing
// behind. Optimistic version checks close the lost-update window under
// concurrent callers.
type Engine struct {
	db       *gorm.DB
	store    external.DocumentStore
	verifier external.DocumentVerifier
	notifier external.Notifier
	timeout  time.Duration
	log      *zap.Logger
}

// NewEngine wires the engine with its collaborators. verifier and
// notifier may be nil; a nil verifier skips verdict checking and a nil
// notifier drops notifications.
func NewEngine(db *gorm.DB, store external.DocumentStore, verifier external.DocumentVerifier, notifier external.Notifier, timeout time.Duration, log *zap.Logger) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{db: db, store: store, verifier: verifier, notifier: notifier, timeout: timeout, log: log}
}

var defaultEngine *Engine

// Init stores the engine used by the HTTP handlers.
func Init(e *Engine) {
	defaultEngine = e
}

// Get returns the engine configured at startup.
func Get() *Engine {
	return defaultEngine
}

// updateGuarded writes the updates only if the row still carries the
// version the caller read, and bumps the version. Zero rows affected
// means a concurrent writer won.
func updateGuarded(tx *gorm.DB, m any, id string, version int64, updates map[string]any) error {
	updates["version"] = version + 1
	res := tx.Model(m).Where("id = ? AND version = ?", id, version).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return Conflict("concurrent update on %q, retry", id)
	}
	return nil
}

func notFoundOr(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(kind, id)
	}
	return err
}

// notification is queued during a transaction and delivered only after
// commit, so a failed transition never notifies anyone.
type notification struct {
	msg external.Message
}

func (e *Engine) deliver(pending []notification) {
	if e.notifier == nil {
		return
	}
	for _, n := range pending {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		err := e.notifier.Send(ctx, n.msg)
		cancel()
		if err != nil {
			// Best effort only: a lost notification never reverts the
			// transition that triggered it.
			prometheus.RecordNotificationFailure()
			e.log.Warn("Notification delivery failed",
				zap.String("channel", n.msg.Channel),
				zap.String("recipient", n.msg.Recipient),
				zap.Error(err))
		}
	}
}

// recomputeProperty projects the unit's availability from the latest
// contract and booking facts. The projection is the single writer of
// Property.Status for visible units; draft and hidden are
// administrative and left alone.
func recomputeProperty(tx *gorm.DB, propertyID string) error {
	var property model.Property
	if err := tx.First(&property, "id = ?", propertyID).Error; err != nil {
		return notFoundOr(err, "property", propertyID)
	}
	if !property.Visible() {
		return nil
	}

	status, err := projectStatus(tx, propertyID)
	if err != nil {
		return err
	}
	if status == property.Status {
		return nil
	}
	return updateGuarded(tx, &model.Property{}, property.ID, property.Version,
		map[string]any{"status": status})
}

func projectStatus(tx *gorm.DB, propertyID string) (model.PropertyStatus, error) {
	var contracts []model.Contract
	if err := tx.Where("property_id = ?", propertyID).Find(&contracts).Error; err != nil {
		return "", err
	}
	terminalByBooking := map[string]bool{}
	for i := range contracts {
		if contracts[i].IsActive() {
			return model.PropertyStatusLeased, nil
		}
		if contracts[i].IsTerminal() {
			terminalByBooking[contracts[i].BookingID] = true
		}
	}
	for i := range contracts {
		if contracts[i].Engages() {
			return model.PropertyStatusReserved, nil
		}
	}

	var bookings []model.Booking
	if err := tx.Where("property_id = ? AND status <> ?", propertyID, model.BookingStatusDeclined).Find(&bookings).Error; err != nil {
		return "", err
	}
	for i := range bookings {
		if terminalByBooking[bookings[i].ID] {
			continue
		}
		var rc model.RentalCase
		err := tx.Where("booking_id = ?", bookings[i].ID).First(&rc).Error
		if err == nil && rc.State == model.CaseStateAborted {
			continue
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
		return model.PropertyStatusReserved, nil
	}
	return model.PropertyStatusVacant, nil
}

// CreatePropertyInput describes an administratively registered unit.
type CreatePropertyInput struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Address    string  `json:"address"`
	LandlordID string  `json:"landlord_id"`
	Rent       float64 `json:"rent"`
	Currency   string  `json:"currency"`
	Draft      bool    `json:"draft"`
}

// CreateProperty registers a unit. The id may be a client-supplied
// short code; otherwise a sequence id is issued.
func (e *Engine) CreateProperty(ctx context.Context, in CreatePropertyInput) (*model.Property, error) {
	if in.Title == "" || in.LandlordID == "" {
		return nil, Validation("title and landlord_id are required")
	}
	if in.Rent < 0 {
		return nil, Validation("rent must be non-negative")
	}
	if in.Currency == "" {
		in.Currency = "OMR"
	}
	status := model.PropertyStatusVacant
	if in.Draft {
		status = model.PropertyStatusDraft
	}

	var property model.Property
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id := strings.TrimSpace(in.ID)
		if id == "" {
			var err error
			if id, err = model.NextID(tx, model.PrefixProperty); err != nil {
				return err
			}
		} else {
			var count int64
			if err := tx.Model(&model.Property{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return Conflict("property %q already exists", id)
			}
		}
		property = model.Property{
			ID:         id,
			Title:      in.Title,
			Address:    in.Address,
			LandlordID: in.LandlordID,
			Rent:       in.Rent,
			Currency:   in.Currency,
			Status:     status,
		}
		return tx.Create(&property).Error
	})
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// SetPropertyVisibility toggles a unit between draft, hidden and
// vacant. It refuses while the unit is engaged by a booking or
// contract.
func (e *Engine) SetPropertyVisibility(ctx context.Context, id string, status model.PropertyStatus) (*model.Property, error) {
	switch status {
	case model.PropertyStatusDraft, model.PropertyStatusHidden, model.PropertyStatusVacant:
	default:
		return nil, Validation("visibility must be draft, hidden or vacant")
	}

	var property model.Property
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&property, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "property", id)
		}
		if property.Status == model.PropertyStatusReserved || property.Status == model.PropertyStatusLeased {
			return Conflict("property %q is engaged (%s)", id, property.Status)
		}
		if err := updateGuarded(tx, &model.Property{}, property.ID, property.Version,
			map[string]any{"status": status}); err != nil {
			return err
		}
		property.Status = status
		property.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &property, nil
}

// CreateBookingInput is a tenant's intent to lease a unit.
type CreateBookingInput struct {
	PropertyID string           `json:"property_id"`
	TenantID   string           `json:"tenant_id"`
	TenantType model.TenantType `json:"tenant_type"`
	Amount     float64          `json:"amount"`
	DueDate    *time.Time       `json:"due_date"`
}

// BookingBundle is everything a booking creation produces: the booking
// itself, the unpaid invoice and the rental case at "reserved".
type BookingBundle struct {
	Booking *model.Booking    `json:"booking"`
	Invoice *model.Invoice    `json:"invoice"`
	Case    *model.RentalCase `json:"case"`
}

// CreateBooking opens a lease cycle on a vacant unit: Booking
// (awaiting_payment) + Invoice (unpaid) + RentalCase (reserved), and
// moves the Property projection to reserved, all in one transaction.
func (e *Engine) CreateBooking(ctx context.Context, actor string, in CreateBookingInput) (*BookingBundle, error) {
	if in.PropertyID == "" || in.TenantID == "" {
		return nil, Validation("property_id and tenant_id are required")
	}
	if in.Amount < 0 {
		return nil, Validation("amount must be non-negative")
	}
	if in.TenantType == "" {
		in.TenantType = model.TenantTypeIndividual
	}
	if in.TenantType != model.TenantTypeIndividual && in.TenantType != model.TenantTypeCompany {
		return nil, Validation("tenant_type must be individual or company")
	}

	var bundle BookingBundle
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var property model.Property
		if err := tx.First(&property, "id = ?", in.PropertyID).Error; err != nil {
			return notFoundOr(err, "property", in.PropertyID)
		}
		if !property.Available() {
			return &Error{
				Code:    CodePropertyAlreadyEngaged,
				Message: fmt.Sprintf("property %q is not available", property.ID),
				State:   string(property.Status),
			}
		}

		amount := in.Amount
		if amount == 0 {
			amount = property.Rent
		}
		due := time.Now().UTC().AddDate(0, 0, 7)
		if in.DueDate != nil {
			due = *in.DueDate
		}

		bookingID, err := model.NextID(tx, model.PrefixBooking)
		if err != nil {
			return err
		}
		invoiceID, err := model.NextID(tx, model.PrefixInvoice)
		if err != nil {
			return err
		}
		caseID, err := model.NextID(tx, model.PrefixCase)
		if err != nil {
			return err
		}

		booking := model.Booking{
			ID:         bookingID,
			PropertyID: property.ID,
			TenantID:   in.TenantID,
			Amount:     amount,
			Currency:   property.Currency,
			Status:     model.BookingStatusAwaitingPayment,
		}
		invoice := model.Invoice{
			ID:            invoiceID,
			ReservationID: bookingID,
			PropertyID:    property.ID,
			Amount:        amount,
			Currency:      property.Currency,
			Status:        model.InvoiceStatusUnpaid,
			DueDate:       due,
		}
		rc := model.RentalCase{
			ID:         caseID,
			PropertyID: property.ID,
			TenantID:   in.TenantID,
			BookingID:  bookingID,
			TenantType: in.TenantType,
			Amount:     amount,
			Currency:   property.Currency,
			State:      model.CaseStateReserved,
		}
		rc.History = appendHistory(&rc, actor, EventReserve, model.CaseStateReserved, "")

		if err := tx.Create(&booking).Error; err != nil {
			return err
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		if err := tx.Create(&rc).Error; err != nil {
			return err
		}
		if err := recomputeProperty(tx, property.ID); err != nil {
			return err
		}

		bundle = BookingBundle{Booking: &booking, Invoice: &invoice, Case: &rc}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordTransition("case", string(EventReserve), "accepted")
	e.deliver([]notification{{msg: external.Message{
		Channel:   "email",
		Recipient: bundle.Booking.TenantID,
		Subject:   "Booking received",
		Body:      fmt.Sprintf("Booking %s for property %s recorded, awaiting payment of %.3f %s.", bundle.Booking.ID, bundle.Booking.PropertyID, bundle.Invoice.Amount, bundle.Invoice.Currency),
	}}})
	return &bundle, nil
}

// ReviewBooking acknowledges a booking: awaiting_payment -> pending.
func (e *Engine) ReviewBooking(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "booking", id)
		}
		if booking.Status != model.BookingStatusAwaitingPayment {
			return InvalidTransition(string(booking.Status), []string{"decline"},
				"booking %q cannot move to pending", id)
		}
		if err := updateGuarded(tx, &model.Booking{}, booking.ID, booking.Version,
			map[string]any{"status": model.BookingStatusPending}); err != nil {
			return err
		}
		booking.Status = model.BookingStatusPending
		booking.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// DeclineBooking declines a pre-confirmed booking, cancels its open
// invoices, aborts the rental case and frees the property.
func (e *Engine) DeclineBooking(ctx context.Context, id, actor, reason string) (*model.Booking, error) {
	var booking model.Booking
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&booking, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "booking", id)
		}
		if !booking.CanDecline() {
			return InvalidTransition(string(booking.Status), nil,
				"booking %q is already %s", id, booking.Status)
		}
		if err := e.declineBookingTx(tx, &booking, actor, reason); err != nil {
			return err
		}
		return recomputeProperty(tx, booking.PropertyID)
	})
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// declineBookingTx moves the booking to declined regardless of its
// current status. The public decline checks CanDecline first; the case
// abort unwind does not, so a confirmed booking ends declined there.
func (e *Engine) declineBookingTx(tx *gorm.DB, booking *model.Booking, actor, reason string) error {
	if err := updateGuarded(tx, &model.Booking{}, booking.ID, booking.Version,
		map[string]any{"status": model.BookingStatusDeclined}); err != nil {
		return err
	}
	booking.Status = model.BookingStatusDeclined
	booking.Version++

	var invoices []model.Invoice
	if err := tx.Where("reservation_id = ? AND status = ?", booking.ID, model.InvoiceStatusUnpaid).Find(&invoices).Error; err != nil {
		return err
	}
	for i := range invoices {
		if err := updateGuarded(tx, &model.Invoice{}, invoices[i].ID, invoices[i].Version,
			map[string]any{"status": model.InvoiceStatusCanceled}); err != nil {
			return err
		}
	}

	var rc model.RentalCase
	err := tx.Where("booking_id = ?", booking.ID).First(&rc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if abortableStates[rc.State] {
		if err := e.abortCaseTx(tx, &rc, actor, reason); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) abortCaseTx(tx *gorm.DB, rc *model.RentalCase, actor, note string) error {
	history := appendHistory(rc, actor, EventAbort, model.CaseStateAborted, note)
	if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version, map[string]any{
		"state":   model.CaseStateAborted,
		"history": datatypes.JSONSlice[model.HistoryEntry](history),
	}); err != nil {
		return err
	}
	rc.State = model.CaseStateAborted
	rc.History = history
	rc.Version++

	if rc.ContractID != "" {
		var contract model.Contract
		if err := tx.First(&contract, "id = ?", rc.ContractID).Error; err != nil {
			return err
		}
		if !contract.IsTerminal() {
			if err := updateGuarded(tx, &model.Contract{}, contract.ID, contract.Version, map[string]any{
				"status":           model.ContractStatusRejected,
				"rejection_reason": "rental case aborted",
			}); err != nil {
				return err
			}
		}
	}
	prometheus.RecordTransition("case", string(EventAbort), "accepted")
	return nil
}

// UpdateInvoiceStatus is the only way an invoice reaches paid or
// canceled. Marking it paid confirms the linked booking, advances the
// rental case past "reserved" and updates contract totals, all in the
// same transaction; the payment notification goes out after commit and
// its failure never reverts anything.
func (e *Engine) UpdateInvoiceStatus(ctx context.Context, id string, status model.InvoiceStatus, actor string) (*model.Invoice, error) {
	if status != model.InvoiceStatusPaid && status != model.InvoiceStatusCanceled {
		return nil, Validation("status must be paid or canceled")
	}

	var invoice model.Invoice
	var pending []notification
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invoice, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "invoice", id)
		}
		if !invoice.IsOpen() {
			return InvalidTransition(string(invoice.Status), nil,
				"invoice %q is already %s", id, invoice.Status)
		}

		if status == model.InvoiceStatusCanceled {
			if err := updateGuarded(tx, &model.Invoice{}, invoice.ID, invoice.Version,
				map[string]any{"status": model.InvoiceStatusCanceled}); err != nil {
				return err
			}
			invoice.Status = model.InvoiceStatusCanceled
			invoice.Version++
			return nil
		}

		now := time.Now().UTC()
		if err := updateGuarded(tx, &model.Invoice{}, invoice.ID, invoice.Version, map[string]any{
			"status":  model.InvoiceStatusPaid,
			"paid_at": now,
		}); err != nil {
			return err
		}
		invoice.Status = model.InvoiceStatusPaid
		invoice.PaidAt = &now
		invoice.Version++

		var booking model.Booking
		if err := tx.First(&booking, "id = ?", invoice.ReservationID).Error; err != nil {
			return notFoundOr(err, "booking", invoice.ReservationID)
		}
		if booking.Status == model.BookingStatusDeclined {
			return Conflict("booking %q was declined", booking.ID)
		}
		if !booking.IsConfirmed() {
			if err := updateGuarded(tx, &model.Booking{}, booking.ID, booking.Version,
				map[string]any{"status": model.BookingStatusConfirmed}); err != nil {
				return err
			}
			booking.Status = model.BookingStatusConfirmed
		}

		var rc model.RentalCase
		err := tx.Where("booking_id = ?", booking.ID).First(&rc).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err == nil && rc.State == model.CaseStateReserved {
			history := appendHistory(&rc, actor, EventPay, model.CaseStatePaid, "invoice "+invoice.ID)
			if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version, map[string]any{
				"state":   model.CaseStatePaid,
				"history": datatypes.JSONSlice[model.HistoryEntry](history),
			}); err != nil {
				return err
			}
			prometheus.RecordTransition("case", string(EventPay), "accepted")
		}

		if err == nil && rc.ContractID != "" {
			var contract model.Contract
			if err := tx.First(&contract, "id = ?", rc.ContractID).Error; err == nil && !contract.IsTerminal() {
				paid := contract.Paid + invoice.Amount
				if err := updateGuarded(tx, &model.Contract{}, contract.ID, contract.Version, map[string]any{
					"paid": paid,
					"due":  contract.Total - paid,
				}); err != nil {
					return err
				}
			}
		}

		if err := recomputeProperty(tx, invoice.PropertyID); err != nil {
			return err
		}

		pending = append(pending, notification{msg: external.Message{
			Channel:   "email",
			Recipient: booking.TenantID,
			Subject:   "Payment received",
			Body:      fmt.Sprintf("Invoice %s for booking %s settled: %.3f %s.", invoice.ID, booking.ID, invoice.Amount, invoice.Currency),
		}})
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordTransition("invoice", string(status), "accepted")
	e.deliver(pending)
	return &invoice, nil
}
