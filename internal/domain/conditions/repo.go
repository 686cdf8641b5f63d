package conditions

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Condition) error
	GetByID(ctx context.Context, id uuid.UUID) (*Condition, error)
	GetByFHIRID(ctx context.Context, fhirID string) (*Condition, error)
	Update(ctx context.Context, c *Condition) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByPatient returns the patient's full condition set in recorded
	// order; the presenter filters and paginates client-side.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Condition, error)
	CountByPatient(ctx context.Context, patientID uuid.UUID) (int, error)
}
