package patient

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/telemetry"
)

var (
	ErrMissingFirstName = errors.New("first name is required")
	ErrMissingLastName  = errors.New("last name is required")
	ErrInvalidHeight    = errors.New("height must be greater than zero")
	ErrInvalidWeight    = errors.New("weight must be greater than zero")
	ErrInvalidBirthDate = errors.New("birth date must be YYYY-MM-DD")
	ErrInvalidStress    = errors.New("stress level must be between 1 and 5")
	ErrInvalidExercise  = errors.New("invalid exercise frequency")
)

type Service struct {
	repo      *Repository
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
}

func NewService(repo *Repository, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{repo: repo, publisher: publisher, metrics: metrics}
}

func (s *Service) CreatePatient(ctx context.Context, doctorID string, req CreatePatientRequest) (*Patient, error) {
	if err := validateProfile(req.FirstName, req.LastName, req.HeightCM, req.WeightKG, req.BirthDate, req.Lifestyle); err != nil {
		return nil, err
	}

	patient, err := s.repo.Create(ctx, doctorID, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.metrics.RecordEntityOperation(ctx, "patient", "create")
	s.publish(ctx, messaging.EventPatientCreated, messaging.NewPatientCreatedEvent(patient.ID, doctorID, patient.DisplayName()))
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id string) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, doctorID string) ([]*Patient, error) {
	patients, err := s.repo.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id string, req UpdatePatientRequest) (*Patient, error) {
	if req.BirthDate != nil && !record.ValidDate(*req.BirthDate) {
		return nil, ErrInvalidBirthDate
	}
	if req.HeightCM != nil && *req.HeightCM <= 0 {
		return nil, ErrInvalidHeight
	}
	if req.WeightKG != nil && *req.WeightKG <= 0 {
		return nil, ErrInvalidWeight
	}
	if req.Lifestyle != nil {
		if err := validateLifestyle(req.Lifestyle); err != nil {
			return nil, err
		}
	}

	patient, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEntityOperation(ctx, "patient", "update")
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	s.metrics.RecordEntityOperation(ctx, "patient", "delete")
	s.publish(ctx, messaging.EventPatientDeleted, messaging.NewPatientDeletedEvent(id))
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("patient: failed to publish %s: %v", routingKey, err)
	}
}

func validateProfile(firstName, lastName string, height, weight float64, birthDate string, ls *Lifestyle) error {
	if firstName == "" {
		return ErrMissingFirstName
	}
	if lastName == "" {
		return ErrMissingLastName
	}
	if height <= 0 {
		return ErrInvalidHeight
	}
	if weight <= 0 {
		return ErrInvalidWeight
	}
	if birthDate != "" && !record.ValidDate(birthDate) {
		return ErrInvalidBirthDate
	}
	return validateLifestyle(ls)
}

func validateLifestyle(ls *Lifestyle) error {
	if ls == nil {
		return nil
	}
	if ls.StressLevel < 1 || ls.StressLevel > 5 {
		return ErrInvalidStress
	}
	if !validExerciseFrequencies[ls.ExerciseFrequency] {
		return ErrInvalidExercise
	}
	return nil
}
