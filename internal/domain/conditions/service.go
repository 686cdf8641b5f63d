package conditions

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service is the chart's condition data source. It keeps the last good
// snapshot per patient so a failed re-fetch can still hand the presenter the
// previously known records alongside the error.
type Service struct {
	repo Repository
	log  zerolog.Logger

	mu        sync.RWMutex
	snapshots map[uuid.UUID][]*Condition
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		log:       logger,
		snapshots: make(map[uuid.UUID][]*Condition),
	}
}

// Fetch loads the patient's condition set. On failure the last snapshot (if
// any) is returned with the wrapped error so the caller can keep rendering
// stale data while surfacing the fetch failure.
func (s *Service) Fetch(ctx context.Context, patientID uuid.UUID) FetchResult {
	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		snap, ok := s.Snapshot(patientID)
		s.log.Error().Err(err).Str("patient_id", patientID.String()).Msg("condition fetch failed")
		return FetchResult{Records: snap, Err: fmt.Errorf("list conditions: %w", err), Revalidating: ok}
	}

	s.mu.Lock()
	s.snapshots[patientID] = records
	s.mu.Unlock()

	return FetchResult{Records: records}
}

// Snapshot returns the last successfully fetched set for the patient.
func (s *Service) Snapshot(patientID uuid.UUID) ([]*Condition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[patientID]
	return snap, ok
}

func (s *Service) Create(ctx context.Context, c *Condition) error {
	if c.PatientID == uuid.Nil {
		return fmt.Errorf("patient_id is required")
	}
	if c.CodeValue == "" {
		return fmt.Errorf("code_value is required")
	}
	if c.CodeDisplay == "" {
		return fmt.Errorf("code_display is required")
	}
	if c.ClinicalStatus == "" {
		c.ClinicalStatus = StatusActive
	}
	if !validClinicalStatuses[c.ClinicalStatus] {
		return fmt.Errorf("invalid clinical_status: %s", c.ClinicalStatus)
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	s.invalidate(c.PatientID)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Condition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByFHIRID(ctx context.Context, fhirID string) (*Condition, error) {
	return s.repo.GetByFHIRID(ctx, fhirID)
}

func (s *Service) Update(ctx context.Context, c *Condition) error {
	if c.ClinicalStatus != "" && !validClinicalStatuses[c.ClinicalStatus] {
		return fmt.Errorf("invalid clinical_status: %s", c.ClinicalStatus)
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return err
	}
	s.invalidate(c.PatientID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(c.PatientID)
	return nil
}

func (s *Service) Count(ctx context.Context, patientID uuid.UUID) (int, error) {
	return s.repo.CountByPatient(ctx, patientID)
}

func (s *Service) invalidate(patientID uuid.UUID) {
	s.mu.Lock()
	delete(s.snapshots, patientID)
	s.mu.Unlock()
}
