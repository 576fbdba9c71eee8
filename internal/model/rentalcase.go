package model

import (
	"time"

	"gorm.io/datatypes"
)

// CaseState is the linear progression of a rental case from reservation
// to handover. States advance strictly forward; the only exit from the
// line is the terminal "aborted" state, reachable before the owner has
// signed.
type CaseState string

const (
	CaseStateReserved          CaseState = "reserved"
	CaseStatePaid              CaseState = "paid"
	CaseStateDocsSubmitted     CaseState = "docs_submitted"
	CaseStateDocsVerified      CaseState = "docs_verified"
	CaseStateContractGenerated CaseState = "contract_generated"
	CaseStateTenantSigned      CaseState = "tenant_signed"
	CaseStateOwnerSigned       CaseState = "owner_signed"
	CaseStateAccountantChecked CaseState = "accountant_checked"
	CaseStateAdminApproved     CaseState = "admin_approved"
	CaseStateHandoverReady     CaseState = "handover_ready"
	CaseStateHandoverCompleted CaseState = "handover_completed"
	CaseStateAborted           CaseState = "aborted"
)

// TenantType determines which document kinds are mandatory.
type TenantType string

const (
	TenantTypeIndividual TenantType = "individual"
	TenantTypeCompany    TenantType = "company"
)

// DocumentKind classifies an uploaded case document.
type DocumentKind string

const (
	DocumentKindIdentity      DocumentKind = "identity"
	DocumentKindCommercialReg DocumentKind = "commercial_registration"
	DocumentKindIncomeProof   DocumentKind = "income_proof"
	DocumentKindOther         DocumentKind = "other"
)

// DocumentVerdict is the outcome reported by the verification
// collaborator. Valid is nil while the verdict is unknown.
type DocumentVerdict struct {
	Valid           *bool             `json:"valid,omitempty"`
	ExpirationDate  *time.Time        `json:"expiration_date,omitempty"`
	ExtractedFields map[string]string `json:"extracted_fields,omitempty"`
	ConfidenceScore float64           `json:"confidence_score,omitempty"`
}

// CaseDocument is one entry in a case's ordered document collection.
// The core stores only the storage reference, never the payload.
type CaseDocument struct {
	Kind       DocumentKind     `json:"kind"`
	Name       string           `json:"name"`
	StorageRef string           `json:"storage_ref"`
	Size       int64            `json:"size"`
	UploadedAt time.Time        `json:"uploaded_at"`
	Verdict    *DocumentVerdict `json:"verdict,omitempty"`
}

// MeterReading records one utility meter value taken at handover.
type MeterReading struct {
	Utility string    `json:"utility"`
	Reading float64   `json:"reading"`
	ReadAt  time.Time `json:"read_at"`
}

// HandoverRecord collects the evidence gathered at key handover.
type HandoverRecord struct {
	PhotoRefs     []string       `json:"photo_refs,omitempty"`
	BillRefs      []string       `json:"bill_refs,omitempty"`
	MeterReadings []MeterReading `json:"meter_readings,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// HistoryEntry is one line of the append-only audit log. Exactly one
// entry is appended per accepted transition; the log is never edited
// or truncated.
type HistoryEntry struct {
	Timestamp      time.Time `json:"ts"`
	Actor          string    `json:"actor"`
	Event          string    `json:"event"`
	ResultingState CaseState `json:"resulting_state"`
	Note           string    `json:"note,omitempty"`
}

// RentalCase is the stateful aggregate driving a tenancy from
// reservation through document verification to handover.
type RentalCase struct {
	ID         string                              `json:"id" gorm:"primaryKey;type:varchar(40)"`
	PropertyID string                              `json:"property_id" gorm:"type:varchar(40);index;not null"`
	TenantID   string                              `json:"tenant_id" gorm:"type:varchar(40);index;not null"`
	BookingID  string                              `json:"booking_id" gorm:"type:varchar(40);index;not null"`
	ContractID string                              `json:"contract_id,omitempty" gorm:"type:varchar(40);index"`
	TenantType TenantType                          `json:"tenant_type" gorm:"type:varchar(20);not null;default:'individual'"`
	Amount     float64                             `json:"amount"`
	Currency   string                              `json:"currency" gorm:"type:varchar(3);default:'OMR'"`
	State      CaseState                           `json:"state" gorm:"type:varchar(30);not null;default:'reserved'"`
	Docs       datatypes.JSONSlice[CaseDocument]   `json:"docs"`
	Handover   datatypes.JSONType[*HandoverRecord] `json:"handover"`
	History    datatypes.JSONSlice[HistoryEntry]   `json:"history"`
	Version    int64                               `json:"version" gorm:"not null;default:0"`
	CreatedAt  time.Time                           `json:"created_at"`
	UpdatedAt  time.Time                           `json:"updated_at"`
}

// DocsOfKind returns the documents of the given kind in upload order.
func (rc *RentalCase) DocsOfKind(kind DocumentKind) []CaseDocument {
	var out []CaseDocument
	for _, d := range rc.Docs {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// IsTerminal returns true once the case can no longer advance.
func (rc *RentalCase) IsTerminal() bool {
	return rc.State == CaseStateHandoverCompleted || rc.State == CaseStateAborted
}
