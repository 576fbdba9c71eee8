package workflow

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"lease-service/internal/model"
	"lease-service/prometheus"
)

// DocumentInput is one uploaded case document.
type DocumentInput struct {
	Kind        model.DocumentKind `json:"kind"`
	Name        string             `json:"name"`
	ContentType string             `json:"content_type"`
	Payload     []byte             `json:"payload"`
}

// SubmitDocument stores the payload with the document collaborator and
// appends the reference to the case's document collection. The first
// document submitted to a paid case advances it to docs_submitted.
func (e *Engine) SubmitDocument(ctx context.Context, caseID, actor string, in DocumentInput) (*model.RentalCase, error) {
	switch in.Kind {
	case model.DocumentKindIdentity, model.DocumentKindCommercialReg, model.DocumentKindIncomeProof, model.DocumentKindOther:
	default:
		return nil, Validation("unknown document kind %q", in.Kind)
	}
	if in.Name == "" || len(in.Payload) == 0 {
		return nil, Validation("name and payload are required")
	}

	storeCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ref, size, err := e.store.Put(storeCtx, in.Name, in.Payload, in.ContentType)
	if err != nil {
		return nil, NewError(CodeExternalUnavailable, "document storage unavailable")
	}

	var rc model.RentalCase
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rc, "id = ?", caseID).Error; err != nil {
			return notFoundOr(err, "case", caseID)
		}
		if rc.State != model.CaseStatePaid && rc.State != model.CaseStateDocsSubmitted {
			return InvalidTransition(string(rc.State), AllowedCaseEvents(rc.State),
				"case %q does not accept documents", caseID)
		}

		docs := append([]model.CaseDocument(rc.Docs), model.CaseDocument{
			Kind:       in.Kind,
			Name:       in.Name,
			StorageRef: ref,
			Size:       size,
			UploadedAt: time.Now().UTC(),
		})
		updates := map[string]any{
			"docs": datatypes.JSONSlice[model.CaseDocument](docs),
		}

		history := rc.History
		state := rc.State
		if rc.State == model.CaseStatePaid {
			state = model.CaseStateDocsSubmitted
			history = datatypes.JSONSlice[model.HistoryEntry](
				appendHistory(&rc, actor, EventSubmitDocs, state, in.Name))
			updates["state"] = state
			updates["history"] = history
		}

		if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version, updates); err != nil {
			return err
		}
		if state != rc.State {
			prometheus.RecordTransition("case", string(EventSubmitDocs), "accepted")
		}
		rc.Docs = docs
		rc.History = history
		rc.State = state
		rc.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// HandoverInput records the evidence gathered at key handover.
type HandoverInput struct {
	PhotoRefs     []string             `json:"photo_refs"`
	BillRefs      []string             `json:"bill_refs"`
	MeterReadings []model.MeterReading `json:"meter_readings"`
	Notes         string               `json:"notes"`
	Completed     bool                 `json:"completed"`
}

// RecordHandover stores the handover record on a case that has reached
// handover_ready. It does not advance the case; handover_done does,
// once the record satisfies its guard.
func (e *Engine) RecordHandover(ctx context.Context, caseID, actor string, in HandoverInput) (*model.RentalCase, error) {
	for _, r := range in.MeterReadings {
		if strings.TrimSpace(r.Utility) == "" {
			return nil, Validation("meter reading without utility name")
		}
		if r.Reading < 0 {
			return nil, Validation("meter reading for %s must be non-negative", r.Utility)
		}
	}

	var rc model.RentalCase
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rc, "id = ?", caseID).Error; err != nil {
			return notFoundOr(err, "case", caseID)
		}
		if rc.State != model.CaseStateHandoverReady {
			return InvalidTransition(string(rc.State), AllowedCaseEvents(rc.State),
				"case %q is not at handover", caseID)
		}

		rec := &model.HandoverRecord{
			PhotoRefs:     in.PhotoRefs,
			BillRefs:      in.BillRefs,
			MeterReadings: in.MeterReadings,
			Notes:         in.Notes,
		}
		if in.Completed {
			now := time.Now().UTC()
			rec.CompletedAt = &now
		}
		handover := datatypes.NewJSONType(rec)
		if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version,
			map[string]any{"handover": handover}); err != nil {
			return err
		}
		rc.Handover = handover
		rc.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rc, nil
}

// drivenEvents are applied by their source operation, not by the
// generic event endpoint: reserve by booking creation, pay by invoice
// settlement, submit_docs by document upload and sign_tenant by the
// contract's tenant_accept.
var drivenEvents = map[CaseEvent]string{
	EventReserve:    "booking creation",
	EventPay:        "invoice settlement",
	EventSubmitDocs: "document submission",
	EventSignTenant: "contract tenant_accept",
}

// ParseCaseEvent validates a caller-supplied event name.
func ParseCaseEvent(s string) (CaseEvent, bool) {
	ev := CaseEvent(strings.ToLower(strings.TrimSpace(s)))
	switch ev {
	case EventReserve, EventPay, EventSubmitDocs, EventVerifyDocs, EventGenerateContract,
		EventSignTenant, EventSignOwner, EventAccountantOK, EventAdminOK,
		EventHandoverReady, EventHandoverDone, EventAbort:
		return ev, true
	}
	return "", false
}

// AdvanceCase applies an event to the rental case machine. An event is
// valid only as the defined successor of the current state; invalid
// attempts return INVALID_TRANSITION and mutate nothing. Every
// accepted transition appends exactly one history entry.
func (e *Engine) AdvanceCase(ctx context.Context, caseID, actor string, event CaseEvent, note string) (*model.RentalCase, error) {
	var rc model.RentalCase
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rc, "id = ?", caseID).Error; err != nil {
			return notFoundOr(err, "case", caseID)
		}

		if event == EventAbort {
			if !abortableStates[rc.State] {
				return InvalidTransition(string(rc.State), AllowedCaseEvents(rc.State),
					"case %q cannot be aborted", caseID)
			}
			var booking model.Booking
			if err := tx.First(&booking, "id = ?", rc.BookingID).Error; err != nil {
				return err
			}
			if booking.Status != model.BookingStatusDeclined {
				if err := e.declineBookingTx(tx, &booking, actor, note); err != nil {
					return err
				}
			} else if err := e.abortCaseTx(tx, &rc, actor, note); err != nil {
				return err
			}
			if err := tx.First(&rc, "id = ?", caseID).Error; err != nil {
				return err
			}
			return recomputeProperty(tx, rc.PropertyID)
		}

		nextEvent, nextState, ok := NextCaseEvent(rc.State)
		if !ok || event != nextEvent {
			prometheus.RecordTransition("case", string(event), "rejected")
			return InvalidTransition(string(rc.State), AllowedCaseEvents(rc.State),
				"event %s is not valid for case %q", event, caseID)
		}
		if source, driven := drivenEvents[event]; driven {
			return Validation("event %s is applied by %s", event, source)
		}

		updates := map[string]any{"state": nextState}

		switch event {
		case EventVerifyDocs:
			docs, wErr := e.verifyDocuments(ctx, &rc)
			if wErr != nil {
				prometheus.RecordTransition("case", string(event), "rejected")
				return wErr
			}
			updates["docs"] = datatypes.JSONSlice[model.CaseDocument](docs)
			rc.Docs = docs
		case EventGenerateContract:
			contractID, err := e.generateContractTx(tx, &rc)
			if err != nil {
				return err
			}
			updates["contract_id"] = contractID
			rc.ContractID = contractID
		case EventHandoverDone:
			if problems := handoverProblems(&rc); len(problems) > 0 {
				prometheus.RecordTransition("case", string(event), "rejected")
				return &Error{
					Code:    CodeHandoverIncomplete,
					Message: "handover incomplete: " + strings.Join(problems, "; "),
					State:   string(rc.State),
					Allowed: AllowedCaseEvents(rc.State),
				}
			}
		}

		history := appendHistory(&rc, actor, event, nextState, note)
		updates["history"] = datatypes.JSONSlice[model.HistoryEntry](history)
		if err := updateGuarded(tx, &model.RentalCase{}, rc.ID, rc.Version, updates); err != nil {
			return err
		}
		rc.State = nextState
		rc.History = history
		rc.Version++
		return nil
	})
	if err != nil {
		return nil, err
	}

	// abortCaseTx counts the abort transition itself.
	if event != EventAbort {
		prometheus.RecordTransition("case", string(event), "accepted")
	}
	e.log.Info("Case transition accepted",
		zap.String("case_id", rc.ID),
		zap.String("event", string(event)),
		zap.String("state", string(rc.State)),
		zap.String("actor", actor))
	return &rc, nil
}

// verifyDocuments runs the verification collaborator over documents
// that have no verdict yet and evaluates the mandatory-kind guard. On
// failure nothing is persisted; the verdicts are retried on the next
// attempt.
func (e *Engine) verifyDocuments(ctx context.Context, rc *model.RentalCase) ([]model.CaseDocument, *Error) {
	docs := append([]model.CaseDocument(nil), rc.Docs...)
	if e.verifier != nil {
		for i := range docs {
			if docs[i].Verdict != nil && docs[i].Verdict.Valid != nil {
				continue
			}
			vctx, cancel := context.WithTimeout(ctx, e.timeout)
			verdict, err := e.verifier.Verify(vctx, docs[i].StorageRef, docs[i].Kind)
			cancel()
			if err != nil {
				// Collaborator unreachable: the verdict stays unknown,
				// which withholds verify_docs below.
				e.log.Warn("Document verification unavailable",
					zap.String("case_id", rc.ID),
					zap.String("ref", docs[i].StorageRef),
					zap.Error(err))
				continue
			}
			docs[i].Verdict = verdict
		}
	}

	checked := *rc
	checked.Docs = docs
	if problems := docProblems(&checked, e.verifier != nil); len(problems) > 0 {
		return nil, &Error{
			Code:    CodeDocsNotVerified,
			Message: "documents not verified: " + strings.Join(problems, "; "),
			State:   string(rc.State),
			Allowed: AllowedCaseEvents(rc.State),
		}
	}
	return docs, nil
}

// generateContractTx creates the contract for a case, snapshotting the
// current terms. At most one non-terminal contract may exist per
// property.
func (e *Engine) generateContractTx(tx *gorm.DB, rc *model.RentalCase) (string, error) {
	var engaged int64
	err := tx.Model(&model.Contract{}).
		Where("property_id = ? AND status NOT IN ?", rc.PropertyID, []model.ContractStatus{
			model.ContractStatusRejected, model.ContractStatusTerminated, model.ContractStatusExpired,
		}).
		Count(&engaged).Error
	if err != nil {
		return "", err
	}
	if engaged > 0 {
		return "", &Error{
			Code:    CodePropertyAlreadyEngaged,
			Message: "property " + rc.PropertyID + " already has a non-terminal contract",
		}
	}

	var property model.Property
	if err := tx.First(&property, "id = ?", rc.PropertyID).Error; err != nil {
		return "", notFoundOr(err, "property", rc.PropertyID)
	}

	var paid float64
	var invoices []model.Invoice
	if err := tx.Where("reservation_id = ? AND status = ?", rc.BookingID, model.InvoiceStatusPaid).Find(&invoices).Error; err != nil {
		return "", err
	}
	for i := range invoices {
		paid += invoices[i].Amount
	}

	id, err := model.NextID(tx, model.PrefixContract)
	if err != nil {
		return "", err
	}
	contract := model.Contract{
		ID:         id,
		BookingID:  rc.BookingID,
		PropertyID: rc.PropertyID,
		LandlordID: property.LandlordID,
		TenantID:   rc.TenantID,
		Status:     model.ContractStatusDrafting,
		Revision:   1,
		TermsHTML:  renderContractTerms(&property, rc),
		Total:      rc.Amount,
		Paid:       paid,
		Due:        rc.Amount - paid,
	}
	if err := tx.Create(&contract).Error; err != nil {
		return "", err
	}
	return id, nil
}
