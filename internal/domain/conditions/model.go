package conditions

import (
	"time"

	"github.com/emr/chart/internal/platform/fhir"
	"github.com/google/uuid"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

var validClinicalStatuses = map[string]bool{
	StatusActive:   true,
	StatusInactive: true,
}

// Condition maps to the condition table (FHIR Condition resource). Records
// are owned by the data source: the chart fetches them wholesale and never
// mutates one in place.
type Condition struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	FHIRID            string     `db:"fhir_id" json:"fhir_id"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	CodeSystem        *string    `db:"code_system" json:"code_system,omitempty"`
	CodeValue         string     `db:"code_value" json:"code_value"`
	CodeDisplay       string     `db:"code_display" json:"code_display"`
	ClinicalStatus    string     `db:"clinical_status" json:"clinical_status"`
	OnsetDatetime     *time.Time `db:"onset_datetime" json:"onset_datetime,omitempty"`
	AbatementDatetime *time.Time `db:"abatement_datetime" json:"abatement_datetime,omitempty"`
	RecordedDate      *time.Time `db:"recorded_date" json:"recorded_date,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (c *Condition) ToFHIR() map[string]interface{} {
	result := map[string]interface{}{
		"resourceType": "Condition",
		"id":           c.FHIRID,
		"clinicalStatus": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System: "http://terminology.hl7.org/CodeSystem/condition-clinical",
				Code:   c.ClinicalStatus,
			}},
		},
		"code": fhir.CodeableConcept{
			Coding: []fhir.Coding{{
				System:  strVal(c.CodeSystem),
				Code:    c.CodeValue,
				Display: c.CodeDisplay,
			}},
			Text: c.CodeDisplay,
		},
		"subject": fhir.Reference{Reference: fhir.FormatReference("Patient", c.PatientID.String())},
		"meta":    fhir.Meta{LastUpdated: c.UpdatedAt},
	}
	if c.OnsetDatetime != nil {
		result["onsetDateTime"] = c.OnsetDatetime.Format(time.RFC3339)
	}
	if c.AbatementDatetime != nil {
		result["abatementDateTime"] = c.AbatementDatetime.Format(time.RFC3339)
	}
	if c.RecordedDate != nil {
		result["recordedDate"] = c.RecordedDate.Format("2006-01-02")
	}
	return result
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
