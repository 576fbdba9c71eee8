package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPropertyPredicates(t *testing.T) {
	p := &Property{Status: PropertyStatusDraft}
	assert.False(t, p.Visible())
	assert.False(t, p.Available())

	p.Status = PropertyStatusVacant
	assert.True(t, p.Visible())
	assert.True(t, p.Available())

	p.Status = PropertyStatusReserved
	assert.True(t, p.Visible())
	assert.False(t, p.Available())

	p.Status = PropertyStatusHidden
	assert.False(t, p.Visible())
	assert.False(t, p.Available())
}

func TestBookingPredicates(t *testing.T) {
	b := &Booking{Status: BookingStatusAwaitingPayment}
	assert.True(t, b.CanDecline())
	assert.True(t, b.Engages())

	b.Status = BookingStatusConfirmed
	assert.True(t, b.IsConfirmed())
	assert.False(t, b.CanDecline())
	assert.True(t, b.Engages())

	b.Status = BookingStatusDeclined
	assert.False(t, b.CanDecline())
	assert.False(t, b.Engages())
}

func TestContractPredicates(t *testing.T) {
	c := &Contract{Status: ContractStatusDrafting}
	assert.False(t, c.IsTerminal())
	assert.True(t, c.Engages())
	assert.False(t, c.IsActive())

	c.Status = ContractStatusActive
	assert.True(t, c.IsActive())
	assert.True(t, c.Engages())

	for _, status := range []ContractStatus{ContractStatusRejected, ContractStatusTerminated, ContractStatusExpired} {
		c.Status = status
		assert.True(t, c.IsTerminal(), "status %s", status)
		assert.False(t, c.Engages(), "status %s", status)
	}
}

func TestCaseDocsOfKind(t *testing.T) {
	rc := &RentalCase{}
	rc.Docs = []CaseDocument{
		{Kind: DocumentKindIdentity, Name: "passport.pdf"},
		{Kind: DocumentKindIncomeProof, Name: "payslip.pdf"},
		{Kind: DocumentKindIdentity, Name: "id-card.pdf"},
	}

	ids := rc.DocsOfKind(DocumentKindIdentity)
	assert.Len(t, ids, 2)
	assert.Equal(t, "passport.pdf", ids[0].Name)
	assert.Empty(t, rc.DocsOfKind(DocumentKindCommercialReg))
}
