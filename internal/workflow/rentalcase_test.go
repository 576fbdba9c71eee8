package workflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"lease-service/internal/model"
)

func TestCaseTransitionOrder(t *testing.T) {
	// Walk the full line from reserved to handover_completed.
	wantOrder := []struct {
		event CaseEvent
		next  model.CaseState
	}{
		{EventPay, model.CaseStatePaid},
		{EventSubmitDocs, model.CaseStateDocsSubmitted},
		{EventVerifyDocs, model.CaseStateDocsVerified},
		{EventGenerateContract, model.CaseStateContractGenerated},
		{EventSignTenant, model.CaseStateTenantSigned},
		{EventSignOwner, model.CaseStateOwnerSigned},
		{EventAccountantOK, model.CaseStateAccountantChecked},
		{EventAdminOK, model.CaseStateAdminApproved},
		{EventHandoverReady, model.CaseStateHandoverReady},
		{EventHandoverDone, model.CaseStateHandoverCompleted},
	}

	state := model.CaseStateReserved
	for _, step := range wantOrder {
		event, next, ok := NextCaseEvent(state)
		require.True(t, ok, "state %s has no successor", state)
		assert.Equal(t, step.event, event)
		assert.Equal(t, step.next, next)
		state = next
	}

	// The final state has no successor.
	_, _, ok := NextCaseEvent(model.CaseStateHandoverCompleted)
	assert.False(t, ok)
	_, _, ok = NextCaseEvent(model.CaseStateAborted)
	assert.False(t, ok)
}

func TestAllowedCaseEvents(t *testing.T) {
	assert.Equal(t, []string{"pay", "abort"}, AllowedCaseEvents(model.CaseStateReserved))
	assert.Equal(t, []string{"sign_owner"}, AllowedCaseEvents(model.CaseStateTenantSigned))
	assert.Empty(t, AllowedCaseEvents(model.CaseStateHandoverCompleted))
}

func TestMandatoryDocKinds(t *testing.T) {
	assert.Equal(t, []model.DocumentKind{model.DocumentKindIdentity},
		MandatoryDocKinds(model.TenantTypeIndividual))
	assert.Equal(t, []model.DocumentKind{model.DocumentKindIdentity, model.DocumentKindCommercialReg},
		MandatoryDocKinds(model.TenantTypeCompany))
	// Unknown tenant types fall back to the individual requirements.
	assert.Equal(t, []model.DocumentKind{model.DocumentKindIdentity},
		MandatoryDocKinds(model.TenantType("trust")))
}

func TestDocProblems(t *testing.T) {
	valid := true
	invalid := false

	tests := []struct {
		name          string
		tenantType    model.TenantType
		docs          []model.CaseDocument
		verifierInUse bool
		want          []string
	}{
		{
			name:       "individual with identity, no verifier",
			tenantType: model.TenantTypeIndividual,
			docs:       []model.CaseDocument{{Kind: model.DocumentKindIdentity}},
			want:       nil,
		},
		{
			name:       "company missing commercial registration",
			tenantType: model.TenantTypeCompany,
			docs:       []model.CaseDocument{{Kind: model.DocumentKindIdentity}},
			want:       []string{"commercial_registration: missing"},
		},
		{
			name:          "identity explicitly invalid",
			tenantType:    model.TenantTypeIndividual,
			docs:          []model.CaseDocument{{Kind: model.DocumentKindIdentity, Verdict: &model.DocumentVerdict{Valid: &invalid}}},
			verifierInUse: true,
			want:          []string{"identity: invalid"},
		},
		{
			name:          "verdict unknown withholds verification",
			tenantType:    model.TenantTypeIndividual,
			docs:          []model.CaseDocument{{Kind: model.DocumentKindIdentity}},
			verifierInUse: true,
			want:          []string{"identity: verdict unknown"},
		},
		{
			name:       "one valid among invalid is enough",
			tenantType: model.TenantTypeIndividual,
			docs: []model.CaseDocument{
				{Kind: model.DocumentKindIdentity, Verdict: &model.DocumentVerdict{Valid: &invalid}},
				{Kind: model.DocumentKindIdentity, Verdict: &model.DocumentVerdict{Valid: &valid}},
			},
			verifierInUse: true,
			want:          nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := &model.RentalCase{TenantType: tt.tenantType}
			rc.Docs = tt.docs
			assert.Equal(t, tt.want, docProblems(rc, tt.verifierInUse))
		})
	}
}

func TestHandoverProblems(t *testing.T) {
	now := time.Now().UTC()

	rc := &model.RentalCase{}
	problems := handoverProblems(rc)
	assert.Len(t, problems, 3, "no record: both meters and the timestamp missing")

	rc = &model.RentalCase{}
	rc.Handover = datatypes.NewJSONType(&model.HandoverRecord{
		MeterReadings: []model.MeterReading{{Utility: "electricity", Reading: 1042}},
		CompletedAt:   &now,
	})
	assert.Equal(t, []string{"meter reading missing: water"}, handoverProblems(rc))

	rc = &model.RentalCase{}
	rc.Handover = datatypes.NewJSONType(&model.HandoverRecord{
		MeterReadings: []model.MeterReading{
			{Utility: "electricity", Reading: 1042},
			{Utility: "water", Reading: 77},
		},
	})
	assert.Equal(t, []string{"completion timestamp missing"}, handoverProblems(rc))

	rc = &model.RentalCase{}
	rc.Handover = datatypes.NewJSONType(&model.HandoverRecord{
		MeterReadings: []model.MeterReading{
			{Utility: "electricity", Reading: 1042},
			{Utility: "water", Reading: 77},
		},
		CompletedAt: &now,
	})
	assert.Empty(t, handoverProblems(rc))
}

func TestContractTransitionTable(t *testing.T) {
	next, ok := NextContractStatus(model.ContractStatusDrafting, ActionIssue)
	require.True(t, ok)
	assert.Equal(t, model.ContractStatusAwaitingTenantSign, next)

	next, ok = NextContractStatus(model.ContractStatusAwaitingTenantSign, ActionTenantAccept)
	require.True(t, ok)
	assert.Equal(t, model.ContractStatusAwaitingLandlordApprove, next)

	next, ok = NextContractStatus(model.ContractStatusAwaitingLandlordApprove, ActionLandlordApprove)
	require.True(t, ok)
	assert.Equal(t, model.ContractStatusActive, next)

	// Terminate and expire are valid only from active.
	_, ok = NextContractStatus(model.ContractStatusAwaitingTenantSign, ActionTerminate)
	assert.False(t, ok)
	next, ok = NextContractStatus(model.ContractStatusActive, ActionExpire)
	require.True(t, ok)
	assert.Equal(t, model.ContractStatusExpired, next)

	// Terminal statuses accept nothing.
	assert.Empty(t, AllowedContractActions(model.ContractStatusRejected))
	assert.Empty(t, AllowedContractActions(model.ContractStatusTerminated))
}

func TestParseContractAction(t *testing.T) {
	action, ok := ParseContractAction("Landlord_Reject")
	require.True(t, ok)
	assert.Equal(t, ActionLandlordReject, action)

	_, ok = ParseContractAction("approve")
	assert.False(t, ok)
}
