package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/telemetry"
)

var (
	ErrMissingTitle    = errors.New("title is required")
	ErrMissingDate     = errors.New("date is required")
	ErrMissingTime     = errors.New("time is required")
	ErrInvalidDate     = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTime     = errors.New("time must be HH:MM")
	ErrDateInPast      = errors.New("appointment date cannot be in the past")
	ErrMissingReason   = errors.New("rejection reason is required")
	ErrInvalidStatus   = errors.New("invalid appointment status")
	ErrMissingPatient  = errors.New("patient id is required")
	ErrMissingDoctor   = errors.New("doctor id is required")
)

// Service implements the appointment lifecycle on top of the repository.
type Service struct {
	repo      *Repository
	publisher messaging.PublisherInterface
	metrics   *telemetry.Metrics
	now       func() time.Time
}

func NewService(repo *Repository, publisher messaging.PublisherInterface, metrics *telemetry.Metrics) *Service {
	return &Service{repo: repo, publisher: publisher, metrics: metrics, now: time.Now}
}

// SetClock overrides the time source. Tests only.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Request is the patient-initiated flow: validated, then written with
// status pending for the doctor to approve or reject.
func (s *Service) Request(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	appt, err := s.repo.Create(ctx, req, StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to request appointment: %w", err)
	}

	s.metrics.RecordAppointmentTransition(ctx, "", StatusPending)
	s.publish(ctx, messaging.EventAppointmentRequested, messaging.NewAppointmentEvent(messaging.EventAppointmentRequested, appt.ID, appt.PatientID, appt.DoctorID, "", StatusPending))
	return appt, nil
}

// Create is the doctor-initiated direct flow: no approval step, the
// appointment starts scheduled.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Appointment, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	appt, err := s.repo.Create(ctx, req, StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.metrics.RecordAppointmentTransition(ctx, "", StatusScheduled)
	s.publish(ctx, messaging.EventAppointmentStatusChanged, messaging.NewAppointmentEvent(messaging.EventAppointmentStatusChanged, appt.ID, appt.PatientID, appt.DoctorID, "", StatusScheduled))
	return appt, nil
}

// Approve sets a pending request to scheduled, with optional free-text
// notes. No capacity check is performed against the doctor's schedule.
func (s *Service) Approve(ctx context.Context, id, notes string) (*Appointment, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	partial := docstore.Document{
		"status": StatusScheduled,
	}
	if notes != "" {
		partial["notes"] = notes
	}

	appt, err := s.repo.Patch(ctx, id, partial)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAppointmentTransition(ctx, current.Status, StatusScheduled)
	s.publish(ctx, messaging.EventAppointmentApproved, messaging.NewAppointmentEvent(messaging.EventAppointmentApproved, appt.ID, appt.PatientID, appt.DoctorID, current.Status, StatusScheduled))
	return appt, nil
}

// Reject refuses a pending request. The reason is mandatory; without it no
// store write occurs.
func (s *Service) Reject(ctx context.Context, id, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, ErrMissingReason
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	appt, err := s.repo.Patch(ctx, id, docstore.Document{
		"status":          StatusRejected,
		"rejectionReason": reason,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAppointmentTransition(ctx, current.Status, StatusRejected)
	s.publish(ctx, messaging.EventAppointmentRejected, messaging.NewAppointmentEvent(messaging.EventAppointmentRejected, appt.ID, appt.PatientID, appt.DoctorID, current.Status, StatusRejected))
	return appt, nil
}

// UpdateStatus writes any known status. Transitions are not validated; the
// UI restricts which actions appear in which state.
func (s *Service) UpdateStatus(ctx context.Context, id, status, notes string) (*Appointment, error) {
	if !validStatuses[status] {
		return nil, ErrInvalidStatus
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	partial := docstore.Document{"status": status}
	if notes != "" {
		partial["notes"] = notes
	}

	appt, err := s.repo.Patch(ctx, id, partial)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAppointmentTransition(ctx, current.Status, status)
	s.publish(ctx, messaging.EventAppointmentStatusChanged, messaging.NewAppointmentEvent(messaging.EventAppointmentStatusChanged, appt.ID, appt.PatientID, appt.DoctorID, current.Status, status))
	return appt, nil
}

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return s.repo.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListPendingByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return s.repo.ListPendingByDoctor(ctx, doctorID)
}

func (s *Service) DeleteAppointment(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	s.metrics.RecordEntityOperation(ctx, "appointment", "delete")
	return nil
}

func (s *Service) validateCreate(req *CreateRequest) error {
	if req.PatientID == "" {
		return ErrMissingPatient
	}
	if req.DoctorID == "" {
		return ErrMissingDoctor
	}
	if req.Title == "" {
		return ErrMissingTitle
	}
	if req.Date == "" {
		return ErrMissingDate
	}
	if req.Time == "" {
		return ErrMissingTime
	}
	if !record.ValidDate(req.Date) {
		return ErrInvalidDate
	}
	if !record.ValidClock(req.Time) {
		return ErrInvalidTime
	}
	// Naive comparison against the local date; same-day requests pass.
	if record.DateBefore(req.Date, record.DateOnly(s.now())) {
		return ErrDateInPast
	}
	if req.Type == "" {
		req.Type = TypeExamination
	} else if !validTypes[req.Type] {
		req.Type = TypeExamination
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, event interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, routingKey, event); err != nil {
		log.Printf("appointment: failed to publish %s: %v", routingKey, err)
	}
}
