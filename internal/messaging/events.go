package messaging

import (
	"fmt"
	"time"
)

// Event routing keys as constants
const (
	// Patient events
	EventPatientCreated = "patient.created"
	EventPatientDeleted = "patient.deleted"

	// Appointment events
	EventAppointmentRequested     = "appointment.requested"
	EventAppointmentApproved      = "appointment.approved"
	EventAppointmentRejected      = "appointment.rejected"
	EventAppointmentStatusChanged = "appointment.status_changed"

	// Measurement events
	EventMeasurementCreated = "measurement.created"

	// Diet plan events
	EventDietPlanCreated = "diet_plan.created"

	// User events
	EventUserRegistered = "user.registered"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientCreatedEvent represents a patient creation event
type PatientCreatedEvent struct {
	BaseEvent
	Data PatientCreatedData `json:"data"`
}

type PatientCreatedData struct {
	PatientID   string `json:"patient_id"`
	DoctorID    string `json:"doctor_id"`
	PatientName string `json:"patient_name"`
}

// PatientDeletedEvent represents a patient deletion event
type PatientDeletedEvent struct {
	BaseEvent
	Data PatientDeletedData `json:"data"`
}

type PatientDeletedData struct {
	PatientID string    `json:"patient_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// AppointmentEvent represents any appointment lifecycle event
type AppointmentEvent struct {
	BaseEvent
	Data AppointmentData `json:"data"`
}

type AppointmentData struct {
	AppointmentID string `json:"appointment_id"`
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	OldStatus     string `json:"old_status,omitempty"`
	NewStatus     string `json:"new_status"`
}

// MeasurementCreatedEvent represents a new health reading
type MeasurementCreatedEvent struct {
	BaseEvent
	Data MeasurementData `json:"data"`
}

type MeasurementData struct {
	MeasurementID string  `json:"measurement_id"`
	PatientID     string  `json:"patient_id"`
	WeightKG      float64 `json:"weight"`
}

// DietPlanCreatedEvent represents a new diet plan assignment
type DietPlanCreatedEvent struct {
	BaseEvent
	Data DietPlanData `json:"data"`
}

type DietPlanData struct {
	DietPlanID string `json:"diet_plan_id"`
	PatientID  string `json:"patient_id"`
	Title      string `json:"title"`
}

// UserRegisteredEvent represents a new account registration
type UserRegisteredEvent struct {
	BaseEvent
	Data UserRegisteredData `json:"data"`
}

type UserRegisteredData struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     fmt.Sprintf("%d", time.Now().UnixNano()),
		Timestamp:   time.Now().UTC(),
		ServiceName: "clinic-service",
	}
}

func NewPatientCreatedEvent(patientID, doctorID, patientName string) PatientCreatedEvent {
	return PatientCreatedEvent{
		BaseEvent: NewBaseEvent(EventPatientCreated),
		Data: PatientCreatedData{
			PatientID:   patientID,
			DoctorID:    doctorID,
			PatientName: patientName,
		},
	}
}

func NewPatientDeletedEvent(patientID string) PatientDeletedEvent {
	return PatientDeletedEvent{
		BaseEvent: NewBaseEvent(EventPatientDeleted),
		Data: PatientDeletedData{
			PatientID: patientID,
			DeletedAt: time.Now().UTC(),
		},
	}
}

func NewAppointmentEvent(eventType, appointmentID, patientID, doctorID, oldStatus, newStatus string) AppointmentEvent {
	return AppointmentEvent{
		BaseEvent: NewBaseEvent(eventType),
		Data: AppointmentData{
			AppointmentID: appointmentID,
			PatientID:     patientID,
			DoctorID:      doctorID,
			OldStatus:     oldStatus,
			NewStatus:     newStatus,
		},
	}
}

func NewMeasurementCreatedEvent(measurementID, patientID string, weightKG float64) MeasurementCreatedEvent {
	return MeasurementCreatedEvent{
		BaseEvent: NewBaseEvent(EventMeasurementCreated),
		Data: MeasurementData{
			MeasurementID: measurementID,
			PatientID:     patientID,
			WeightKG:      weightKG,
		},
	}
}

func NewDietPlanCreatedEvent(dietPlanID, patientID, title string) DietPlanCreatedEvent {
	return DietPlanCreatedEvent{
		BaseEvent: NewBaseEvent(EventDietPlanCreated),
		Data: DietPlanData{
			DietPlanID: dietPlanID,
			PatientID:  patientID,
			Title:      title,
		},
	}
}

func NewUserRegisteredEvent(userID, email, role string) UserRegisteredEvent {
	return UserRegisteredEvent{
		BaseEvent: NewBaseEvent(EventUserRegistered),
		Data: UserRegisteredData{
			UserID: userID,
			Email:  email,
			Role:   role,
		},
	}
}
