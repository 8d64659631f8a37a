package measurement

import (
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/patient"
	"github.com/medtrack/clinic-service/internal/record"
)

// Measurement is a point-in-time health reading for a patient. BMI is
// derived on read from the reading's weight and the patient's stored height;
// it is never persisted.
type Measurement struct {
	ID              string  `json:"id"`
	PatientID       string  `json:"patientId"`
	PatientName     string  `json:"patientName"`
	WeightKG        float64 `json:"weight"`
	WaterIntakeML   int     `json:"waterIntake"`
	ExerciseMinutes int     `json:"exerciseDuration"`
	Date            string  `json:"date"` // YYYY-MM-DD
	Time            string  `json:"time"` // HH:MM
	Notes           string  `json:"notes,omitempty"`
	BMI             float64 `json:"bmi,omitempty"`
	CreatedAt       string  `json:"createdAt"`
	UpdatedAt       string  `json:"updatedAt"`
}

// CreateRequest carries the fields for a new reading.
type CreateRequest struct {
	PatientID       string  `json:"patientId"`
	PatientName     string  `json:"patientName"`
	WeightKG        float64 `json:"weight"`
	WaterIntakeML   int     `json:"waterIntake"`
	ExerciseMinutes int     `json:"exerciseDuration"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	Notes           string  `json:"notes,omitempty"`
}

// UpdateRequest carries partial edits. Present in the contract though the
// doctor screens only ever create readings.
type UpdateRequest struct {
	WeightKG        *float64 `json:"weight,omitempty"`
	WaterIntakeML   *int     `json:"waterIntake,omitempty"`
	ExerciseMinutes *int     `json:"exerciseDuration,omitempty"`
	Date            *string  `json:"date,omitempty"`
	Time            *string  `json:"time,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

func FromDoc(doc docstore.Document) *Measurement {
	return &Measurement{
		ID:              record.Str(doc, "id"),
		PatientID:       record.Str(doc, "patientId"),
		PatientName:     record.Str(doc, "patientName"),
		WeightKG:        record.Num(doc, "weight"),
		WaterIntakeML:   record.Int(doc, "waterIntake"),
		ExerciseMinutes: record.Int(doc, "exerciseDuration"),
		Date:            record.Str(doc, "date"),
		Time:            record.Str(doc, "time"),
		Notes:           record.Str(doc, "notes"),
		CreatedAt:       record.Str(doc, "createdAt"),
		UpdatedAt:       record.Str(doc, "updatedAt"),
	}
}

// WithBMI fills the derived BMI from the patient's stored height.
func (m *Measurement) WithBMI(heightCM float64) *Measurement {
	m.BMI = patient.ComputeBMI(heightCM, m.WeightKG)
	return m
}

// SortKey is the combined date+time ordering key.
func (m *Measurement) SortKey() string {
	return m.Date + " " + m.Time
}
