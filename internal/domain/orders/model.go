package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/emr/chart/internal/platform/fhir"
)

const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusRevoked   = "revoked"
)

// FulfillerDeclined is the fixed fulfiller status a cancellation request
// carries. The fulfiller side owns any other status values.
const FulfillerDeclined = "DECLINED"

// Order maps to the clinical_order table (FHIR ServiceRequest resource).
// Orders are owned by the ordering system; the chart reads them and submits
// cancellations, it never edits one in place.
type Order struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	FHIRID          string     `db:"fhir_id" json:"fhir_id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	OrderNumber     string     `db:"order_number" json:"order_number"`
	CodeDisplay     string     `db:"code_display" json:"code_display"`
	Status          string     `db:"status" json:"status"`
	FulfillerStatus *string    `db:"fulfiller_status" json:"fulfiller_status,omitempty"`
	CancelReason    *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	DateActivated   *time.Time `db:"date_activated" json:"date_activated,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// CancellationRequest is built once per submission and discarded after the
// sink accepts or rejects it. It is never stored on the form.
type CancellationRequest struct {
	FulfillerStatus string `json:"fulfiller_status"`
	Reason          string `json:"reason"`
}

func (o *Order) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "ServiceRequest",
		"id":           o.FHIRID,
		"status":       o.Status,
		"intent":       "order",
		"identifier": []fhir.Identifier{{
			System: "http://terminology.hl7.org/CodeSystem/v2-0203",
			Value:  o.OrderNumber,
		}},
		"code": fhir.CodeableConcept{
			Text: o.CodeDisplay,
		},
		"subject": fhir.Reference{Reference: fhir.FormatReference("Patient", o.PatientID.String())},
		"meta":    fhir.Meta{LastUpdated: o.UpdatedAt},
	}
	if o.DateActivated != nil {
		result["authoredOn"] = o.DateActivated.Format(time.RFC3339)
	}
	return result
}
