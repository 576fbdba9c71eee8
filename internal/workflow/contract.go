package workflow

import (
	"fmt"
	"strings"

	"lease-service/internal/model"
)

// ContractAction is an action applied to the contract approval machine.
type ContractAction string

const (
	ActionIssue           ContractAction = "issue"
	ActionTenantAccept    ContractAction = "tenant_accept"
	ActionLandlordApprove ContractAction = "landlord_approve"
	ActionLandlordReject  ContractAction = "landlord_reject"
	ActionTerminate       ContractAction = "terminate"
	ActionExpire          ContractAction = "expire"
)

// contractEdges is the branching transition table. The contract machine
// is deliberately separate from the linear case machine; the two are
// correlated by shared ids only.
var contractEdges = map[model.ContractStatus]map[ContractAction]model.ContractStatus{
	model.ContractStatusDrafting: {
		ActionIssue: model.ContractStatusAwaitingTenantSign,
	},
	model.ContractStatusAwaitingTenantSign: {
		ActionTenantAccept:   model.ContractStatusAwaitingLandlordApprove,
		ActionLandlordReject: model.ContractStatusRejected,
	},
	model.ContractStatusAwaitingLandlordApprove: {
		ActionLandlordApprove: model.ContractStatusActive,
		ActionLandlordReject:  model.ContractStatusRejected,
	},
	model.ContractStatusActive: {
		ActionTerminate: model.ContractStatusTerminated,
		ActionExpire:    model.ContractStatusExpired,
	},
}

// NextContractStatus resolves an action against the current status.
func NextContractStatus(status model.ContractStatus, action ContractAction) (model.ContractStatus, bool) {
	next, ok := contractEdges[status][action]
	return next, ok
}

// AllowedContractActions lists the actions a contract in the given
// status accepts.
func AllowedContractActions(status model.ContractStatus) []string {
	var out []string
	for _, a := range []ContractAction{ActionIssue, ActionTenantAccept, ActionLandlordApprove, ActionLandlordReject, ActionTerminate, ActionExpire} {
		if _, ok := contractEdges[status][a]; ok {
			out = append(out, string(a))
		}
	}
	return out
}

// ParseContractAction validates a caller-supplied action string.
func ParseContractAction(s string) (ContractAction, bool) {
	switch ContractAction(strings.ToLower(s)) {
	case ActionIssue, ActionTenantAccept, ActionLandlordApprove, ActionLandlordReject, ActionTerminate, ActionExpire:
		return ContractAction(strings.ToLower(s)), true
	}
	return "", false
}

// renderContractTerms produces the immutable terms snapshot for a new
// contract. Later term changes create a new contract revision; this
// blob is never edited.
func renderContractTerms(p *model.Property, rc *model.RentalCase) string {
	return fmt.Sprintf(
		"<html><body><h1>Lease Agreement</h1>"+
			"<p>Unit: %s — %s</p>"+
			"<p>Landlord: %s</p>"+
			"<p>Tenant: %s</p>"+
			"<p>Rent: %.3f %s per month</p>"+
			"</body></html>",
		p.ID, p.Title, p.LandlordID, rc.TenantID, rc.Amount, rc.Currency)
}
