package orders

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service reads orders and is the submission sink for cancellations. Like
// the conditions data source it keeps the last good per-patient snapshot;
// Mutate refreshes it out of band after a cancellation lands.
type Service struct {
	repo Repository
	log  zerolog.Logger

	mu        sync.RWMutex
	snapshots map[uuid.UUID][]*Order
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		log:       logger,
		snapshots: make(map[uuid.UUID][]*Order),
	}
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*Order, error) {
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	s.mu.Lock()
	s.snapshots[patientID] = records
	s.mu.Unlock()
	return records, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByOrderNumber(ctx context.Context, orderNumber string) (*Order, error) {
	return s.repo.GetByOrderNumber(ctx, orderNumber)
}

// Snapshot returns the last successfully listed set for the patient.
func (s *Service) Snapshot(patientID uuid.UUID) ([]*Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[patientID]
	return snap, ok
}

// SubmitCancellation implements Sink: it persists the declined fulfiller
// status and the reason on the order.
func (s *Service) SubmitCancellation(ctx context.Context, order *Order, req CancellationRequest) error {
	if err := s.repo.UpdateFulfillerStatus(ctx, order.ID, req.FulfillerStatus, req.Reason); err != nil {
		return fmt.Errorf("submit cancellation: %w", err)
	}
	return nil
}

// Mutate re-fetches the patient's orders so the next read sees the
// post-cancellation state. A failed refresh keeps the prior snapshot.
func (s *Service) Mutate(ctx context.Context, patientID uuid.UUID) {
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		s.log.Warn().Err(err).Str("patient_id", patientID.String()).Msg("order refetch failed")
		return
	}
	s.mu.Lock()
	s.snapshots[patientID] = records
	s.mu.Unlock()
}
