package patient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/users"
)

var ErrPatientNotFound = errors.New("patient not found")

// Repository maps hasta-role documents in the users collection to Patient
// records. Queries issue one store-side equality filter; the userType check
// and the final ordering happen in-process (two-stage contract).
type Repository struct {
	col docstore.Collection
	now func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{
		col: store.Collection(docstore.CollectionUsers),
		now: time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// Create persists a new patient profile owned by doctorID. Caller-supplied
// id/timestamps are ignored; BMI is derived from height and weight.
func (r *Repository) Create(ctx context.Context, doctorID string, req CreatePatientRequest) (*Patient, error) {
	today := record.DateOnly(r.now())
	doc := docstore.Document{
		"userType":       users.RolePatient,
		"firstName":      req.FirstName,
		"lastName":       req.LastName,
		"email":          req.Email,
		"birthDate":      req.BirthDate,
		"gender":         req.Gender,
		"height":         req.HeightCM,
		"weight":         req.WeightKG,
		"bmi":            ComputeBMI(req.HeightCM, req.WeightKG),
		"bloodValues":    bloodValuesDoc(req.BloodValues),
		"allergies":      record.AnySlice(req.Allergies),
		"medicalHistory": record.AnySlice(req.MedicalHistory),
		"medications":    record.AnySlice(req.Medications),
		"lifestyle":      lifestyleDoc(req.Lifestyle),
		"doctorId":       doctorID,
		"createdAt":      today,
		"updatedAt":      today,
	}

	id, err := r.col.Add(ctx, doc)
	if err != nil {
		log.Printf("patient: failed to create profile: %v", err)
		return nil, err
	}

	doc["id"] = id
	return FromDoc(doc), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Patient, error) {
	doc, err := r.col.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	if record.Str(doc, "userType") != users.RolePatient {
		return nil, ErrPatientNotFound
	}
	return FromDoc(doc), nil
}

// ListByDoctor returns the doctor's patients newest-first. The store filters
// on doctorId only; the role check and createdAt-descending sort run here.
func (r *Repository) ListByDoctor(ctx context.Context, doctorID string) ([]*Patient, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "doctorId", Value: doctorID}},
		OrderBy: &docstore.Order{Field: "createdAt", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}

	var patients []*Patient
	for _, doc := range docs {
		if record.Str(doc, "userType") != users.RolePatient {
			continue
		}
		patients = append(patients, FromDoc(doc))
	}

	// Re-sort client-side for stable ordering across the full set.
	sort.SliceStable(patients, func(i, j int) bool {
		return patients[i].CreatedAt > patients[j].CreatedAt
	})
	return patients, nil
}

// Update merges partial profile fields and re-stamps updatedAt. BMI is
// recomputed whenever height or weight changes.
func (r *Repository) Update(ctx context.Context, id string, req UpdatePatientRequest) (*Patient, error) {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	partial := docstore.Document{
		"updatedAt": record.DateOnly(r.now()),
	}
	if req.FirstName != nil {
		partial["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		partial["lastName"] = *req.LastName
	}
	if req.BirthDate != nil {
		partial["birthDate"] = *req.BirthDate
	}
	if req.Gender != nil {
		partial["gender"] = *req.Gender
	}

	height, weight := current.HeightCM, current.WeightKG
	if req.HeightCM != nil {
		height = *req.HeightCM
		partial["height"] = height
	}
	if req.WeightKG != nil {
		weight = *req.WeightKG
		partial["weight"] = weight
	}
	if req.HeightCM != nil || req.WeightKG != nil {
		partial["bmi"] = ComputeBMI(height, weight)
	}

	if req.BloodValues != nil {
		partial["bloodValues"] = bloodValuesDoc(req.BloodValues)
	}
	if req.Allergies != nil {
		partial["allergies"] = record.AnySlice(req.Allergies)
	}
	if req.MedicalHistory != nil {
		partial["medicalHistory"] = record.AnySlice(req.MedicalHistory)
	}
	if req.Medications != nil {
		partial["medications"] = record.AnySlice(req.Medications)
	}
	if req.Lifestyle != nil {
		partial["lifestyle"] = lifestyleDoc(req.Lifestyle)
	}

	if err := r.col.Merge(ctx, id, partial); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrPatientNotFound
		}
		log.Printf("patient: failed to update profile %s: %v", id, err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the profile by id. Appointments, measurements and diet
// plans referencing the patient are NOT cascaded; the cleanup job sweeps
// dangling children offline.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		log.Printf("patient: failed to delete profile %s: %v", id, err)
		return err
	}
	return nil
}
