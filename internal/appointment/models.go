package appointment

import (
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

// Appointment lifecycle statuses. A patient request starts pending; a doctor
// either approves (scheduled) or rejects it. Direct doctor creation starts
// scheduled. The service validates status values, not transitions; the
// calling UI restricts which actions are offered in which state.
const (
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusRejected  = "rejected"
	StatusNoShow    = "no-show"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusScheduled: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusRejected:  true,
	StatusNoShow:    true,
}

// Appointment types.
const (
	TypeExamination = "muayene"
	TypeFollowUp    = "kontrol"
	TypeConsult     = "gorusme"
)

var validTypes = map[string]bool{
	TypeExamination: true,
	TypeFollowUp:    true,
	TypeConsult:     true,
}

// Appointment is a scheduling record. Patient and doctor display names are
// cached on the document so lists render without joins; dangling references
// keep their last cached name.
type Appointment struct {
	ID              string `json:"id"`
	PatientID       string `json:"patientId"`
	PatientName     string `json:"patientName"`
	DoctorID        string `json:"doctorId"`
	DoctorName      string `json:"doctorName"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date"` // YYYY-MM-DD
	Time            string `json:"time"` // HH:MM
	DurationMinutes int    `json:"duration"`
	Status          string `json:"status"`
	Type            string `json:"type"`
	Notes           string `json:"notes,omitempty"`
	RejectionReason string `json:"rejectionReason,omitempty"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

// CreateRequest carries the fields for a new appointment, used both by the
// patient request flow and the doctor direct-create flow.
type CreateRequest struct {
	PatientID       string `json:"patientId"`
	PatientName     string `json:"patientName"`
	DoctorID        string `json:"doctorId"`
	DoctorName      string `json:"doctorName"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration"`
	Type            string `json:"type"`
}

// FromDoc maps a store document to an Appointment, defaulting unexpected
// shapes.
func FromDoc(doc docstore.Document) *Appointment {
	return &Appointment{
		ID:              record.Str(doc, "id"),
		PatientID:       record.Str(doc, "patientId"),
		PatientName:     record.Str(doc, "patientName"),
		DoctorID:        record.Str(doc, "doctorId"),
		DoctorName:      record.Str(doc, "doctorName"),
		Title:           record.Str(doc, "title"),
		Description:     record.Str(doc, "description"),
		Date:            record.Str(doc, "date"),
		Time:            record.Str(doc, "time"),
		DurationMinutes: record.Int(doc, "duration"),
		Status:          record.Str(doc, "status"),
		Type:            record.Str(doc, "type"),
		Notes:           record.Str(doc, "notes"),
		RejectionReason: record.Str(doc, "rejectionReason"),
		CreatedAt:       record.Str(doc, "createdAt"),
		UpdatedAt:       record.Str(doc, "updatedAt"),
	}
}

// SortKey is the combined date+time ordering key used for newest-first
// listings.
func (a *Appointment) SortKey() string {
	return a.Date + " " + a.Time
}
