package patient

import (
	"math"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/users"
)

// Patient is the clinical profile of a hasta-role user record. Profiles live
// in the users collection alongside plain identity records and are
// disambiguated by the userType field.
type Patient struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	BirthDate string `json:"birthDate"`
	Gender    string `json:"gender"`

	HeightCM float64 `json:"height"`
	WeightKG float64 `json:"weight"`
	BMI      float64 `json:"bmi"`

	BloodValues *BloodValues `json:"bloodValues,omitempty"`

	Allergies      []string `json:"allergies"`
	MedicalHistory []string `json:"medicalHistory"`
	Medications    []string `json:"medications"`

	Lifestyle *Lifestyle `json:"lifestyle,omitempty"`

	DoctorID  string `json:"doctorId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// BloodValues is the nested lab-results record.
type BloodValues struct {
	Glucose     float64 `json:"glucose"`
	Cholesterol float64 `json:"cholesterol"`
	Hemoglobin  float64 `json:"hemoglobin"`
	LastUpdated string  `json:"lastUpdated"`
}

// Lifestyle is the nested lifestyle record.
type Lifestyle struct {
	SleepHours        float64 `json:"sleepHours"`
	ExerciseFrequency string  `json:"exerciseFrequency"`
	StressLevel       int     `json:"stressLevel"`
}

// Exercise frequency values accepted in a lifestyle record.
var validExerciseFrequencies = map[string]bool{
	"none":       true,
	"occasional": true,
	"regular":    true,
	"daily":      true,
}

// CreatePatientRequest carries the fields a doctor submits for a new profile.
type CreatePatientRequest struct {
	FirstName      string       `json:"firstName"`
	LastName       string       `json:"lastName"`
	Email          string       `json:"email"`
	BirthDate      string       `json:"birthDate"`
	Gender         string       `json:"gender"`
	HeightCM       float64      `json:"height"`
	WeightKG       float64      `json:"weight"`
	BloodValues    *BloodValues `json:"bloodValues,omitempty"`
	Allergies      []string     `json:"allergies"`
	MedicalHistory []string     `json:"medicalHistory"`
	Medications    []string     `json:"medications"`
	Lifestyle      *Lifestyle   `json:"lifestyle,omitempty"`
}

// UpdatePatientRequest carries partial profile edits.
type UpdatePatientRequest struct {
	FirstName      *string      `json:"firstName,omitempty"`
	LastName       *string      `json:"lastName,omitempty"`
	BirthDate      *string      `json:"birthDate,omitempty"`
	Gender         *string      `json:"gender,omitempty"`
	HeightCM       *float64     `json:"height,omitempty"`
	WeightKG       *float64     `json:"weight,omitempty"`
	BloodValues    *BloodValues `json:"bloodValues,omitempty"`
	Allergies      []string     `json:"allergies,omitempty"`
	MedicalHistory []string     `json:"medicalHistory,omitempty"`
	Medications    []string     `json:"medications,omitempty"`
	Lifestyle      *Lifestyle   `json:"lifestyle,omitempty"`
}

// ComputeBMI derives body mass index from height in cm and weight in kg,
// rounded to one decimal. Zero when height is not positive.
func ComputeBMI(heightCM, weightKG float64) float64 {
	if heightCM <= 0 {
		return 0
	}
	m := heightCM / 100
	return math.Round(weightKG/(m*m)*10) / 10
}

func (p *Patient) DisplayName() string {
	u := users.User{FirstName: p.FirstName, LastName: p.LastName}
	return u.DisplayName()
}

// FromDoc maps a user document with clinical fields to a Patient.
func FromDoc(doc docstore.Document) *Patient {
	p := &Patient{
		ID:             record.Str(doc, "id"),
		FirstName:      record.Str(doc, "firstName"),
		LastName:       record.Str(doc, "lastName"),
		Email:          record.Str(doc, "email"),
		BirthDate:      record.Str(doc, "birthDate"),
		Gender:         record.Str(doc, "gender"),
		HeightCM:       record.Num(doc, "height"),
		WeightKG:       record.Num(doc, "weight"),
		BMI:            record.Num(doc, "bmi"),
		Allergies:      record.StrSlice(doc, "allergies"),
		MedicalHistory: record.StrSlice(doc, "medicalHistory"),
		Medications:    record.StrSlice(doc, "medications"),
		DoctorID:       record.Str(doc, "doctorId"),
		CreatedAt:      record.Str(doc, "createdAt"),
		UpdatedAt:      record.Str(doc, "updatedAt"),
	}
	if bv := record.Sub(doc, "bloodValues"); bv != nil {
		p.BloodValues = &BloodValues{
			Glucose:     record.Num(bv, "glucose"),
			Cholesterol: record.Num(bv, "cholesterol"),
			Hemoglobin:  record.Num(bv, "hemoglobin"),
			LastUpdated: record.Str(bv, "lastUpdated"),
		}
	}
	if ls := record.Sub(doc, "lifestyle"); ls != nil {
		p.Lifestyle = &Lifestyle{
			SleepHours:        record.Num(ls, "sleepHours"),
			ExerciseFrequency: record.Str(ls, "exerciseFrequency"),
			StressLevel:       record.Int(ls, "stressLevel"),
		}
	}
	return p
}

func bloodValuesDoc(bv *BloodValues) interface{} {
	if bv == nil {
		return docstore.Undefined
	}
	return docstore.Document{
		"glucose":     bv.Glucose,
		"cholesterol": bv.Cholesterol,
		"hemoglobin":  bv.Hemoglobin,
		"lastUpdated": bv.LastUpdated,
	}
}

func lifestyleDoc(ls *Lifestyle) interface{} {
	if ls == nil {
		return docstore.Undefined
	}
	return docstore.Document{
		"sleepHours":        ls.SleepHours,
		"exerciseFrequency": ls.ExerciseFrequency,
		"stressLevel":       ls.StressLevel,
	}
}
