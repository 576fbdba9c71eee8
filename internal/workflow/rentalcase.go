package workflow

import (
	"fmt"
	"time"

	"lease-service/internal/model"
)

// CaseEvent is an event applied to the rental case state machine.
type CaseEvent string

const (
	EventReserve          CaseEvent = "reserve"
	EventPay              CaseEvent = "pay"
	EventSubmitDocs       CaseEvent = "submit_docs"
	EventVerifyDocs       CaseEvent = "verify_docs"
	EventGenerateContract CaseEvent = "generate_contract"
	EventSignTenant       CaseEvent = "sign_tenant"
	EventSignOwner        CaseEvent = "sign_owner"
	EventAccountantOK     CaseEvent = "accountant_ok"
	EventAdminOK          CaseEvent = "admin_ok"
	EventHandoverReady    CaseEvent = "handover_ready"
	EventHandoverDone     CaseEvent = "handover_done"

	// EventAbort is the administrative unwind for a case that has not
	// reached bilateral signature. It declines the booking, cancels an
	// unpaid invoice and frees the property.
	EventAbort CaseEvent = "abort"
)

type caseEdge struct {
	Event CaseEvent
	Next  model.CaseState
}

// caseEdges maps each state to the single event that advances it.
// Events map 1:1 to edges; anything else is an invalid transition.
var caseEdges = map[model.CaseState]caseEdge{
	model.CaseStateReserved:          {EventPay, model.CaseStatePaid},
	model.CaseStatePaid:              {EventSubmitDocs, model.CaseStateDocsSubmitted},
	model.CaseStateDocsSubmitted:     {EventVerifyDocs, model.CaseStateDocsVerified},
	model.CaseStateDocsVerified:      {EventGenerateContract, model.CaseStateContractGenerated},
	model.CaseStateContractGenerated: {EventSignTenant, model.CaseStateTenantSigned},
	model.CaseStateTenantSigned:      {EventSignOwner, model.CaseStateOwnerSigned},
	model.CaseStateOwnerSigned:       {EventAccountantOK, model.CaseStateAccountantChecked},
	model.CaseStateAccountantChecked: {EventAdminOK, model.CaseStateAdminApproved},
	model.CaseStateAdminApproved:     {EventHandoverReady, model.CaseStateHandoverReady},
	model.CaseStateHandoverReady:     {EventHandoverDone, model.CaseStateHandoverCompleted},
}

// abortableStates covers reservation up to the tenant's signature.
// Once the owner has countersigned, unwinding goes through contract
// rejection or termination instead.
var abortableStates = map[model.CaseState]bool{
	model.CaseStateReserved:          true,
	model.CaseStatePaid:              true,
	model.CaseStateDocsSubmitted:     true,
	model.CaseStateDocsVerified:      true,
	model.CaseStateContractGenerated: true,
	model.CaseStateTenantSigned:      true,
}

// NextCaseEvent returns the successor edge for a state, if any.
func NextCaseEvent(state model.CaseState) (CaseEvent, model.CaseState, bool) {
	edge, ok := caseEdges[state]
	return edge.Event, edge.Next, ok
}

// AllowedCaseEvents lists the events a case in the given state accepts.
func AllowedCaseEvents(state model.CaseState) []string {
	var out []string
	if edge, ok := caseEdges[state]; ok {
		out = append(out, string(edge.Event))
	}
	if abortableStates[state] {
		out = append(out, string(EventAbort))
	}
	return out
}

// mandatoryDocKinds is the declarative "document kind -> mandatory"
// table per tenant type. New kinds or tenant types extend this table
// without touching transition logic.
var mandatoryDocKinds = map[model.TenantType][]model.DocumentKind{
	model.TenantTypeIndividual: {model.DocumentKindIdentity},
	model.TenantTypeCompany:    {model.DocumentKindIdentity, model.DocumentKindCommercialReg},
}

// MandatoryDocKinds returns the document kinds required before
// verification can succeed for the given tenant type.
func MandatoryDocKinds(t model.TenantType) []model.DocumentKind {
	kinds, ok := mandatoryDocKinds[t]
	if !ok {
		return mandatoryDocKinds[model.TenantTypeIndividual]
	}
	return kinds
}

// requiredUtilities lists the meter kinds that must be read at handover.
var requiredUtilities = []string{"electricity", "water"}

// docProblems returns, per mandatory kind, what blocks verification:
// missing entirely, explicitly invalid, or verdict still unknown when a
// verifier is in use.
func docProblems(rc *model.RentalCase, verifierInUse bool) []string {
	var problems []string
	for _, kind := range MandatoryDocKinds(rc.TenantType) {
		docs := rc.DocsOfKind(kind)
		if len(docs) == 0 {
			problems = append(problems, fmt.Sprintf("%s: missing", kind))
			continue
		}
		if !verifierInUse {
			continue
		}
		usable := false
		invalid := false
		for _, d := range docs {
			if d.Verdict == nil || d.Verdict.Valid == nil {
				continue
			}
			if *d.Verdict.Valid {
				usable = true
				break
			}
			invalid = true
		}
		switch {
		case usable:
		case invalid:
			problems = append(problems, fmt.Sprintf("%s: invalid", kind))
		default:
			problems = append(problems, fmt.Sprintf("%s: verdict unknown", kind))
		}
	}
	return problems
}

// handoverProblems returns what blocks handover completion: a meter
// reading per required utility plus a completion timestamp.
func handoverProblems(rc *model.RentalCase) []string {
	var problems []string
	rec := rc.Handover.Data()
	if rec == nil {
		for _, u := range requiredUtilities {
			problems = append(problems, fmt.Sprintf("meter reading missing: %s", u))
		}
		problems = append(problems, "completion timestamp missing")
		return problems
	}
	seen := map[string]bool{}
	for _, r := range rec.MeterReadings {
		seen[r.Utility] = true
	}
	for _, u := range requiredUtilities {
		if !seen[u] {
			problems = append(problems, fmt.Sprintf("meter reading missing: %s", u))
		}
	}
	if rec.CompletedAt == nil {
		problems = append(problems, "completion timestamp missing")
	}
	return problems
}

// appendHistory records exactly one audit entry for an accepted
// transition and returns the updated log.
func appendHistory(rc *model.RentalCase, actor string, event CaseEvent, resulting model.CaseState, note string) []model.HistoryEntry {
	entry := model.HistoryEntry{
		Timestamp:      time.Now().UTC(),
		Actor:          actor,
		Event:          string(event),
		ResultingState: resulting,
		Note:           note,
	}
	return append([]model.HistoryEntry(rc.History), entry)
}
