package orders

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error)
	// UpdateFulfillerStatus records the fulfiller's disposition and the
	// cancellation reason on the order.
	UpdateFulfillerStatus(ctx context.Context, id uuid.UUID, status, reason string) error
}
