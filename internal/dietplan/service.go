package dietplan

import (
	"context"
	"errors"
	"log"

	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/patient"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/telemetry"
)

var (
	ErrMissingPatient  = errors.New("patient id is required")
	ErrMissingTitle    = errors.New("title is required")
	ErrMissingDate     = errors.New("date is required")
	ErrInvalidDate     = errors.New("date must be in YYYY-MM-DD format")
	ErrNoMeals         = errors.New("at least one meal is required")
	ErrNegativeWater   = errors.New("water target cannot be negative")
	ErrPatientRequired = errors.New("patient record could not be loaded")
)

type Service struct {
	repo      *Repository
	patients  *patient.Repository
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
}

func NewService(repo *Repository, patients *patient.Repository, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		publisher: publisher,
		metrics:   metrics,
	}
}

// CreateDietPlan validates and stores a new plan. Empty meal slots are
// dropped before the plan reaches the store.
func (s *Service) CreateDietPlan(ctx context.Context, req *CreateRequest, createdBy string) (*DietPlan, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	if req.PatientName == "" {
		p, err := s.patients.GetByID(ctx, req.PatientID)
		if err != nil {
			return nil, ErrPatientRequired
		}
		req.PatientName = p.DisplayName()
	}

	plan, err := s.repo.Create(ctx, req, createdBy)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordEntityOperation(ctx, "diet_plan", "create")
	s.publish(ctx, messaging.EventDietPlanCreated,
		messaging.NewDietPlanCreatedEvent(plan.ID, plan.PatientID, plan.Title))
	return plan, nil
}

func (s *Service) GetDietPlan(ctx context.Context, id string) (*DietPlan, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*DietPlan, error) {
	if patientID == "" {
		return nil, ErrMissingPatient
	}
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) UpdateDietPlan(ctx context.Context, id string, req *UpdateRequest) (*DietPlan, error) {
	if req.Title != nil && *req.Title == "" {
		return nil, ErrMissingTitle
	}
	if req.Date != nil && !record.ValidDate(*req.Date) {
		return nil, ErrInvalidDate
	}
	if req.WaterTargetML != nil && *req.WaterTargetML < 0 {
		return nil, ErrNegativeWater
	}

	plan, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordEntityOperation(ctx, "diet_plan", "update")
	return plan, nil
}

func (s *Service) DeleteDietPlan(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.RecordEntityOperation(ctx, "diet_plan", "delete")
	return nil
}

func (s *Service) validate(req *CreateRequest) error {
	switch {
	case req.PatientID == "":
		return ErrMissingPatient
	case req.Title == "":
		return ErrMissingTitle
	case req.Date == "":
		return ErrMissingDate
	case !record.ValidDate(req.Date):
		return ErrInvalidDate
	case req.WaterTargetML < 0:
		return ErrNegativeWater
	}

	for _, slot := range MealSlots {
		if !req.Meals[slot].Empty() {
			return nil
		}
	}
	return ErrNoMeals
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("Failed to publish %s event: %v", routingKey, err)
	}
}
