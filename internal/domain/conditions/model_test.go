package conditions

import (
	"testing"
	"time"

	"github.com/emr/chart/internal/platform/fhir"
)

func TestConditionToFHIR(t *testing.T) {
	c := cond("Asthma", StatusActive, onset(2021, time.March, 5))
	system := "http://hl7.org/fhir/sid/icd-10"
	c.CodeSystem = &system
	c.CodeValue = "J45"

	resource := c.ToFHIR()
	if resource["resourceType"] != "Condition" {
		t.Errorf("resourceType = %v", resource["resourceType"])
	}
	if resource["id"] != c.FHIRID {
		t.Errorf("id = %v, want %s", resource["id"], c.FHIRID)
	}

	code, ok := resource["code"].(fhir.CodeableConcept)
	if !ok {
		t.Fatal("code is not a CodeableConcept")
	}
	if code.Text != "Asthma" || code.Coding[0].Code != "J45" || code.Coding[0].System != system {
		t.Errorf("unexpected code: %+v", code)
	}

	status, ok := resource["clinicalStatus"].(fhir.CodeableConcept)
	if !ok {
		t.Fatal("clinicalStatus is not a CodeableConcept")
	}
	if status.Coding[0].Code != StatusActive {
		t.Errorf("clinicalStatus = %s", status.Coding[0].Code)
	}

	if resource["onsetDateTime"] != "2021-03-05T00:00:00Z" {
		t.Errorf("onsetDateTime = %v", resource["onsetDateTime"])
	}
	if _, present := resource["abatementDateTime"]; present {
		t.Error("abatementDateTime should be omitted when unset")
	}
}
