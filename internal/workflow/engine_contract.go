package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lease-service/internal/external"
	"lease-service/internal/model"
	"lease-service/prometheus"
)

// caseOrdinal gives each linear state its position for ordering
// comparisons. Aborted is not on the line.
var caseOrdinal = map[model.CaseState]int{
	model.CaseStateReserved:          0,
	model.CaseStatePaid:              1,
	model.CaseStateDocsSubmitted:     2,
	model.CaseStateDocsVerified:      3,
	model.CaseStateContractGenerated: 4,
	model.CaseStateTenantSigned:      5,
	model.CaseStateOwnerSigned:       6,
	model.CaseStateAccountantChecked: 7,
	model.CaseStateAdminApproved:     8,
	model.CaseStateHandoverReady:     9,
	model.CaseStateHandoverCompleted: 10,
}

func caseReached(state model.CaseState, milestone model.CaseState) bool {
	a, okA := caseOrdinal[state]
	b, okB := caseOrdinal[milestone]
	return okA && okB && a >= b
}

// ContractAction applies an approval action to a contract.
// tenant_accept also drives the linked case's sign_tenant edge;
// landlord_approve is gated on the case having passed admin approval
// and activates the contract, which moves the property to leased.
// Rejection, termination and expiry free the property.
func (e *Engine) ContractAction(ctx context.Context, contractID, actor string, action ContractAction, reason string) (*model.Contract, error) {
	if action == ActionLandlordReject && reason == "" {
		return nil, Validation("landlord_reject requires a reason")
	}

	var contract model.Contract
	var pending []notification
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
			return notFoundOr(err, "contract", contractID)
		}

		next, ok := NextContractStatus(contract.Status, action)
		if !ok {
			prometheus.RecordTransition("contract", string(action), "rejected")
			return InvalidTransition(string(contract.Status), AllowedContractActions(contract.Status),
				"action %s is not valid for contract %q", action, contractID)
		}

		var rc model.RentalCase
		caseErr := tx.Where("contract_id = ?", contract.ID).First(&rc).Error
		if caseErr != nil && !errors.Is(caseErr, gorm.ErrRecordNotFound) {
			return caseErr
		}
		hasCase := caseErr == nil

		now := time.Now().UTC()
		updates := map[string]any{"status": next}

		switch action {
		case ActionTenantAccept:
			updates["tenant_accepted_at"] = now
		case ActionLandlordApprove:
			if hasCase && !caseReached(rc.State, model.CaseStateAdminApproved) {
				prometheus.RecordTransition("contract", string(action), "rejected")
				return InvalidTransition(string(contract.Status), nil,
					"contract %q cannot activate before case %q passes admin approval (case at %s)",
					contractID, rc.ID, rc.State)
			}
			updates["landlord_approved_at"] = now
		case ActionLandlordReject:
			updates["rejection_reason"] = reason
		}

		if err := updateGuarded(tx, &model.Contract{}, contract.ID, contract.Version, updates); err != nil {
			return err
		}
		contract.Status = next
		contract.Version++
		switch action {
		case ActionTenantAccept:
			contract.TenantAcceptedAt = &now
		case ActionLandlordApprove:
			contract.LandlordApprovedAt = &now
		case ActionLandlordReject:
			contract.RejectionReason = reason
		}

		if action == ActionTenantAccept && hasCase && rc.State == model.CaseStateContractGenerated {
			history := appendHistory(&rc, actor, EventSignTenant, model.CaseStateTenantSigned, "contract "+contract.ID)
			if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version, map[string]any{
				"state":   model.CaseStateTenantSigned,
				"history": datatypes.JSONSlice[model.HistoryEntry](history),
			}); err != nil {
				return err
			}
			prometheus.RecordTransition("case", string(EventSignTenant), "accepted")
		}

		if contract.IsTerminal() && hasCase && abortableStates[rc.State] {
			if err := e.abortCaseTx(tx, &rc, actor, fmt.Sprintf("contract %s", action)); err != nil {
				return err
			}
		}

		if err := recomputeProperty(tx, contract.PropertyID); err != nil {
			return err
		}

		switch action {
		case ActionTenantAccept:
			pending = append(pending, notification{msg: external.Message{
				Channel:   "email",
				Recipient: contract.LandlordID,
				Subject:   "Contract signed by tenant",
				Body:      fmt.Sprintf("Contract %s awaits your approval.", contract.ID),
			}})
		case ActionLandlordApprove:
			pending = append(pending, notification{msg: external.Message{
				Channel:   "email",
				Recipient: contract.TenantID,
				Subject:   "Contract active",
				Body:      fmt.Sprintf("Contract %s for property %s is now active.", contract.ID, contract.PropertyID),
			}})
		case ActionLandlordReject:
			pending = append(pending, notification{msg: external.Message{
				Channel:   "email",
				Recipient: contract.TenantID,
				Subject:   "Contract rejected",
				Body:      fmt.Sprintf("Contract %s was rejected: %s", contract.ID, reason),
			}})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordTransition("contract", string(action), "accepted")
	e.log.Info("Contract transition accepted",
		zap.String("contract_id", contract.ID),
		zap.String("action", string(action)),
		zap.String("status", string(contract.Status)),
		zap.String("actor", actor))
	e.deliver(pending)
	return &contract, nil
}

// ReviseContractTerms creates a new contract revision with fresh terms.
// The previous snapshot is never edited: the old contract instance is
// closed as rejected ("superseded") and a new row carries the new
// terms. Allowed only before the tenant has signed.
func (e *Engine) ReviseContractTerms(ctx context.Context, contractID, actor string) (*model.Contract, error) {
	var revised model.Contract
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract model.Contract
		if err := tx.First(&contract, "id = ?", contractID).Error; err != nil {
			return notFoundOr(err, "contract", contractID)
		}
		if contract.Status != model.ContractStatusDrafting && contract.Status != model.ContractStatusAwaitingTenantSign {
			return InvalidTransition(string(contract.Status), AllowedContractActions(contract.Status),
				"contract %q can no longer be revised", contractID)
		}

		var rc model.RentalCase
		if err := tx.Where("contract_id = ?", contract.ID).First(&rc).Error; err != nil {
			return notFoundOr(err, "case for contract", contractID)
		}
		var property model.Property
		if err := tx.First(&property, "id = ?", contract.PropertyID).Error; err != nil {
			return notFoundOr(err, "property", contract.PropertyID)
		}

		id, err := model.NextID(tx, model.PrefixContract)
		if err != nil {
			return err
		}
		revised = contract
		revised.ID = id
		revised.Revision = contract.Revision + 1
		revised.Status = model.ContractStatusDrafting
		revised.TermsHTML = renderContractTerms(&property, &rc)
		revised.Version = 0
		revised.CreatedAt = time.Time{}
		revised.UpdatedAt = time.Time{}
		if err := tx.Create(&revised).Error; err != nil {
			return err
		}

		if err := updateGuarded(tx, &model.Contract{}, contract.ID, contract.Version, map[string]any{
			"status":           model.ContractStatusRejected,
			"rejection_reason": "superseded by " + id,
		}); err != nil {
			return err
		}
		return updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version,
			map[string]any{"contract_id": id})
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("Contract revised",
		zap.String("old_contract_id", contractID),
		zap.String("contract_id", revised.ID),
		zap.Int("revision", revised.Revision),
		zap.String("actor", actor))
	return &revised, nil
}
