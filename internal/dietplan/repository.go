package dietplan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

var ErrDietPlanNotFound = errors.New("diet plan not found")

type Repository struct {
	col docstore.Collection
	now func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{
		col: store.Collection(docstore.CollectionDietPlans),
		now: time.Now,
	}
}

func (r *Repository) SetClock(now func() time.Time) { r.now = now }

func (r *Repository) Create(ctx context.Context, req *CreateRequest, createdBy string) (*DietPlan, error) {
	today := record.DateOnly(r.now())
	doc := docstore.Document{
		"patientId":      req.PatientID,
		"patientName":    req.PatientName,
		"title":          req.Title,
		"date":           req.Date,
		"meals":          mealsDoc(req.Meals),
		"waterTarget":    req.WaterTargetML,
		"exerciseAdvice": optional(req.ExerciseAdvice),
		"supplements":    optionalSlice(req.Supplements),
		"notes":          optional(req.Notes),
		"createdBy":      createdBy,
		"createdAt":      today,
		"updatedAt":      today,
	}

	id, err := r.col.Add(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("adding diet plan: %w", err)
	}
	doc["id"] = id
	return FromDoc(docstore.Sanitize(doc)), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*DietPlan, error) {
	doc, err := r.col.Get(ctx, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrDietPlanNotFound
		}
		return nil, fmt.Errorf("getting diet plan %s: %w", id, err)
	}
	return FromDoc(doc), nil
}

// ListByPatient returns all plans for a patient, newest plan date first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]*DietPlan, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "patientId", Value: patientID}},
		OrderBy: &docstore.Order{Field: "date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("listing diet plans for patient %s: %w", patientID, err)
	}

	plans := make([]*DietPlan, 0, len(docs))
	for _, doc := range docs {
		plans = append(plans, FromDoc(doc))
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if plans[i].Date != plans[j].Date {
			return plans[i].Date > plans[j].Date
		}
		return plans[i].CreatedAt > plans[j].CreatedAt
	})
	return plans, nil
}

func (r *Repository) Update(ctx context.Context, id string, req *UpdateRequest) (*DietPlan, error) {
	partial := docstore.Document{"updatedAt": record.DateOnly(r.now())}
	if req.Title != nil {
		partial["title"] = *req.Title
	}
	if req.Date != nil {
		partial["date"] = *req.Date
	}
	if req.Meals != nil {
		partial["meals"] = mealsDoc(req.Meals)
	}
	if req.WaterTargetML != nil {
		partial["waterTarget"] = *req.WaterTargetML
	}
	if req.ExerciseAdvice != nil {
		partial["exerciseAdvice"] = *req.ExerciseAdvice
	}
	if req.Supplements != nil {
		partial["supplements"] = record.AnySlice(req.Supplements)
	}
	if req.Notes != nil {
		partial["notes"] = *req.Notes
	}

	if err := r.col.Merge(ctx, id, partial); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrDietPlanNotFound
		}
		return nil, fmt.Errorf("updating diet plan %s: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrDietPlanNotFound
		}
		return fmt.Errorf("deleting diet plan %s: %w", id, err)
	}
	return nil
}

func optional(s string) interface{} {
	if s == "" {
		return docstore.Undefined
	}
	return s
}

func optionalSlice(s []string) interface{} {
	if len(s) == 0 {
		return docstore.Undefined
	}
	return record.AnySlice(s)
}
