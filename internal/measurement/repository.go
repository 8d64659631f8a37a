package measurement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

var ErrMeasurementNotFound = errors.New("measurement not found")

type Repository struct {
	col docstore.Collection
	now func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{
		col: store.Collection(docstore.CollectionMeasurements),
		now: time.Now,
	}
}

func (r *Repository) SetClock(now func() time.Time) { r.now = now }

func (r *Repository) Create(ctx context.Context, req *CreateRequest) (*Measurement, error) {
	today := record.DateOnly(r.now())
	doc := docstore.Document{
		"patientId":        req.PatientID,
		"patientName":      req.PatientName,
		"weight":           req.WeightKG,
		"waterIntake":      req.WaterIntakeML,
		"exerciseDuration": req.ExerciseMinutes,
		"date":             req.Date,
		"time":             req.Time,
		"notes":            optional(req.Notes),
		"createdAt":        today,
		"updatedAt":        today,
	}

	id, err := r.col.Add(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("adding measurement: %w", err)
	}
	doc["id"] = id
	return FromDoc(docstore.Sanitize(doc)), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Measurement, error) {
	doc, err := r.col.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrMeasurementNotFound
		}
		return nil, fmt.Errorf("getting measurement %s: %w", id, err)
	}
	return FromDoc(doc), nil
}

// ListByPatient returns all readings for a patient, newest first by
// date then time. The store orders by date alone; the time component is
// refined in process.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]*Measurement, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "patientId", Value: patientID}},
		OrderBy: &docstore.Order{Field: "date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("listing measurements for patient %s: %w", patientID, err)
	}

	measurements := make([]*Measurement, 0, len(docs))
	for _, doc := range docs {
		measurements = append(measurements, FromDoc(doc))
	}
	sort.SliceStable(measurements, func(i, j int) bool {
		return measurements[i].SortKey() > measurements[j].SortKey()
	})
	return measurements, nil
}

func (r *Repository) Update(ctx context.Context, id string, req *UpdateRequest) (*Measurement, error) {
	partial := docstore.Document{"updatedAt": record.DateOnly(r.now())}
	if req.WeightKG != nil {
		partial["weight"] = *req.WeightKG
	}
	if req.WaterIntakeML != nil {
		partial["waterIntake"] = *req.WaterIntakeML
	}
	if req.ExerciseMinutes != nil {
		partial["exerciseDuration"] = *req.ExerciseMinutes
	}
	if req.Date != nil {
		partial["date"] = *req.Date
	}
	if req.Time != nil {
		partial["time"] = *req.Time
	}
	if req.Notes != nil {
		partial["notes"] = *req.Notes
	}

	if err := r.col.Merge(ctx, id, partial); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrMeasurementNotFound
		}
		return nil, fmt.Errorf("updating measurement %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrMeasurementNotFound
		}
		return fmt.Errorf("deleting measurement %s: %w", id, err)
	}
	return nil
}

func optional(s string) interface{} {
	if s == "" {
		return docstore.Undefined
	}
	return s
}
