package dietplan

import (
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

// Meal slot names mirror the keys stored in the plan document.
const (
	SlotBreakfast      = "breakfast"
	SlotMorningSnack   = "morningSnack"
	SlotLunch          = "lunch"
	SlotAfternoonSnack = "afternoonSnack"
	SlotDinner         = "dinner"
	SlotNightSnack     = "nightSnack"
)

// MealSlots is the fixed slot order used when rendering a plan.
var MealSlots = []string{
	SlotBreakfast,
	SlotMorningSnack,
	SlotLunch,
	SlotAfternoonSnack,
	SlotDinner,
	SlotNightSnack,
}

// Meal is one slot of a daily diet plan.
type Meal struct {
	Name  string   `json:"name,omitempty"`
	Items []string `json:"items,omitempty"`
	Notes string   `json:"notes,omitempty"`
}

// Empty reports whether the meal carries no content at all. Empty meals
// are pruned before the plan is persisted.
func (m *Meal) Empty() bool {
	return m == nil || (m.Name == "" && len(m.Items) == 0 && m.Notes == "")
}

// DietPlan is a dated nutrition plan a doctor assigns to a patient.
type DietPlan struct {
	ID             string           `json:"id"`
	PatientID      string           `json:"patientId"`
	PatientName    string           `json:"patientName"`
	Title          string           `json:"title"`
	Date           string           `json:"date"` // YYYY-MM-DD
	Meals          map[string]*Meal `json:"meals"`
	WaterTargetML  int              `json:"waterTarget,omitempty"`
	ExerciseAdvice string           `json:"exerciseAdvice,omitempty"`
	Supplements    []string         `json:"supplements,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	CreatedBy      string           `json:"createdBy"`
	CreatedAt      string           `json:"createdAt"`
	UpdatedAt      string           `json:"updatedAt"`
}

// CreateRequest carries the fields for a new plan.
type CreateRequest struct {
	PatientID      string           `json:"patientId"`
	PatientName    string           `json:"patientName"`
	Title          string           `json:"title"`
	Date           string           `json:"date"`
	Meals          map[string]*Meal `json:"meals"`
	WaterTargetML  int              `json:"waterTarget,omitempty"`
	ExerciseAdvice string           `json:"exerciseAdvice,omitempty"`
	Supplements    []string         `json:"supplements,omitempty"`
	Notes          string           `json:"notes,omitempty"`
}

// UpdateRequest carries partial edits to an existing plan.
type UpdateRequest struct {
	Title          *string          `json:"title,omitempty"`
	Date           *string          `json:"date,omitempty"`
	Meals          map[string]*Meal `json:"meals,omitempty"`
	WaterTargetML  *int             `json:"waterTarget,omitempty"`
	ExerciseAdvice *string          `json:"exerciseAdvice,omitempty"`
	Supplements    []string         `json:"supplements,omitempty"`
	Notes          *string          `json:"notes,omitempty"`
}

func FromDoc(doc docstore.Document) *DietPlan {
	plan := &DietPlan{
		ID:             record.Str(doc, "id"),
		PatientID:      record.Str(doc, "patientId"),
		PatientName:    record.Str(doc, "patientName"),
		Title:          record.Str(doc, "title"),
		Date:           record.Str(doc, "date"),
		Meals:          make(map[string]*Meal),
		WaterTargetML:  record.Int(doc, "waterTarget"),
		ExerciseAdvice: record.Str(doc, "exerciseAdvice"),
		Supplements:    record.StrSlice(doc, "supplements"),
		Notes:          record.Str(doc, "notes"),
		CreatedBy:      record.Str(doc, "createdBy"),
		CreatedAt:      record.Str(doc, "createdAt"),
		UpdatedAt:      record.Str(doc, "updatedAt"),
	}

	meals := record.Sub(doc, "meals")
	for _, slot := range MealSlots {
		sub := record.Sub(meals, slot)
		if sub == nil {
			continue
		}
		plan.Meals[slot] = &Meal{
			Name:  record.Str(sub, "name"),
			Items: record.StrSlice(sub, "items"),
			Notes: record.Str(sub, "notes"),
		}
	}
	return plan
}

// mealsDoc converts the slot map to a document, dropping empty meals
// and unknown slot names.
func mealsDoc(meals map[string]*Meal) docstore.Document {
	doc := docstore.Document{}
	for _, slot := range MealSlots {
		meal := meals[slot]
		if meal.Empty() {
			continue
		}
		entry := docstore.Document{"name": meal.Name}
		if len(meal.Items) > 0 {
			entry["items"] = record.AnySlice(meal.Items)
		}
		if meal.Notes != "" {
			entry["notes"] = meal.Notes
		}
		doc[slot] = entry
	}
	return doc
}
