package measurement

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/patient"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/telemetry"
)

var (
	ErrMissingPatient  = errors.New("patient id is required")
	ErrInvalidWeight   = errors.New("weight must be greater than zero")
	ErrNegativeWater   = errors.New("water intake cannot be negative")
	ErrNegativeEx      = errors.New("exercise duration cannot be negative")
	ErrMissingDate     = errors.New("date is required")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
	ErrInvalidTime     = errors.New("time must be in HH:MM format")
	ErrInvalidDays     = errors.New("days must be greater than zero")
	ErrPatientRequired = errors.New("patient record could not be loaded")
)

type Service struct {
	repo      *Repository
	patients  *patient.Repository
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewService(repo *Repository, patients *patient.Repository, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		publisher: publisher,
		metrics:   metrics,
		now:       time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
	s.repo.SetClock(now)
}

// CreateMeasurement records a new reading and derives BMI from the
// patient's stored height.
func (s *Service) CreateMeasurement(ctx context.Context, req *CreateRequest) (*Measurement, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.Time == "" {
		req.Time = s.now().Format(record.ClockLayout)
	}

	p, err := s.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, ErrPatientRequired
	}
	if req.PatientName == "" {
		req.PatientName = p.DisplayName()
	}

	m, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	m.WithBMI(p.HeightCM)

	s.metrics.RecordEntityOperation(ctx, "measurement", "create")
	s.publish(ctx, messaging.EventMeasurementCreated,
		messaging.NewMeasurementCreatedEvent(m.ID, m.PatientID, m.WeightKG))
	return m, nil
}

func (s *Service) GetMeasurement(ctx context.Context, id string) (*Measurement, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.deriveBMI(ctx, []*Measurement{m})
	return m, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Measurement, error) {
	if patientID == "" {
		return nil, ErrMissingPatient
	}
	measurements, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	s.deriveBMI(ctx, measurements)
	return measurements, nil
}

// Recent returns the readings from the trailing window of the given
// number of days, both endpoints inclusive. Seven days means today and
// the six days before it.
func (s *Service) Recent(ctx context.Context, patientID string, days int) ([]*Measurement, error) {
	if days <= 0 {
		return nil, ErrInvalidDays
	}
	all, err := s.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	cutoff := record.DateOnly(today.AddDate(0, 0, -(days - 1)))
	end := record.DateOnly(today)

	recent := make([]*Measurement, 0, len(all))
	for _, m := range all {
		if m.Date >= cutoff && m.Date <= end {
			recent = append(recent, m)
		}
	}
	return recent, nil
}

func (s *Service) UpdateMeasurement(ctx context.Context, id string, req *UpdateRequest) (*Measurement, error) {
	if req.WeightKG != nil && *req.WeightKG <= 0 {
		return nil, ErrInvalidWeight
	}
	if req.WaterIntakeML != nil && *req.WaterIntakeML < 0 {
		return nil, ErrNegativeWater
	}
	if req.ExerciseMinutes != nil && *req.ExerciseMinutes < 0 {
		return nil, ErrNegativeEx
	}
	if req.Date != nil && !record.ValidDate(*req.Date) {
		return nil, ErrInvalidDate
	}
	if req.Time != nil && !record.ValidClock(*req.Time) {
		return nil, ErrInvalidTime
	}

	m, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.deriveBMI(ctx, []*Measurement{m})
	s.metrics.RecordEntityOperation(ctx, "measurement", "update")
	return m, nil
}

func (s *Service) DeleteMeasurement(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.RecordEntityOperation(ctx, "measurement", "delete")
	return nil
}

func (s *Service) validate(req *CreateRequest) error {
	switch {
	case req.PatientID == "":
		return ErrMissingPatient
	case req.WeightKG <= 0:
		return ErrInvalidWeight
	case req.WaterIntakeML < 0:
		return ErrNegativeWater
	case req.ExerciseMinutes < 0:
		return ErrNegativeEx
	case req.Date == "":
		return ErrMissingDate
	case !record.ValidDate(req.Date):
		return ErrInvalidDate
	case req.Time != "" && !record.ValidClock(req.Time):
		return ErrInvalidTime
	}
	return nil
}

// deriveBMI fills BMI on each reading from the patient's height. A
// missing patient record leaves BMI at zero rather than failing the read.
func (s *Service) deriveBMI(ctx context.Context, measurements []*Measurement) {
	heights := make(map[string]float64)
	for _, m := range measurements {
		h, ok := heights[m.PatientID]
		if !ok {
			p, err := s.patients.GetByID(ctx, m.PatientID)
			if err != nil {
				heights[m.PatientID] = 0
				continue
			}
			h = p.HeightCM
			heights[m.PatientID] = h
		}
		if h > 0 {
			m.WithBMI(h)
		}
	}
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}
