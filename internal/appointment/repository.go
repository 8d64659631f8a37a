package appointment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
)

var ErrAppointmentNotFound = errors.New("appointment not found")

// Repository maps appointment documents to typed records. Listings issue one
// store-side equality filter and an initial date ordering; the combined
// date+time descending sort always runs in-process for stable ordering.
type Repository struct {
	col docstore.Collection
	now func() time.Time
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{
		col: store.Collection(docstore.CollectionAppointments),
		now: time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (r *Repository) SetClock(now func() time.Time) { r.now = now }

// Create persists a new appointment with the given initial status.
// Description and notes are optional; absent values go through the
// undefined-to-null sanitizer.
func (r *Repository) Create(ctx context.Context, req CreateRequest, status string) (*Appointment, error) {
	today := record.DateOnly(r.now())
	doc := docstore.Document{
		"patientId":   req.PatientID,
		"patientName": req.PatientName,
		"doctorId":    req.DoctorID,
		"doctorName":  req.DoctorName,
		"title":       req.Title,
		"description": optional(req.Description),
		"date":        req.Date,
		"time":        req.Time,
		"duration":    req.DurationMinutes,
		"status":      status,
		"type":        req.Type,
		"notes":       docstore.Undefined,
		"createdAt":   today,
		"updatedAt":   today,
	}

	id, err := r.col.Add(ctx, doc)
	if err != nil {
		log.Printf("appointment: failed to create: %v", err)
		return nil, err
	}

	doc["id"] = id
	return FromDoc(doc), nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	doc, err := r.col.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return FromDoc(doc), nil
}

// ListByDoctor returns every appointment for the doctor, newest first by
// combined date+time. The whole filtered set is fetched; no pagination at
// the store.
func (r *Repository) ListByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	return r.list(ctx, docstore.Filter{Field: "doctorId", Value: doctorID})
}

// ListByPatient returns every appointment for the patient, newest first.
func (r *Repository) ListByPatient(ctx context.Context, patientID string) ([]*Appointment, error) {
	return r.list(ctx, docstore.Filter{Field: "patientId", Value: patientID})
}

// ListPendingByDoctor returns the doctor's pending requests. The store
// filters on doctorId only; the status refinement runs in-process.
func (r *Repository) ListPendingByDoctor(ctx context.Context, doctorID string) ([]*Appointment, error) {
	all, err := r.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	var pending []*Appointment
	for _, a := range all {
		if a.Status == StatusPending {
			pending = append(pending, a)
		}
	}
	return pending, nil
}

func (r *Repository) list(ctx context.Context, filter docstore.Filter) ([]*Appointment, error) {
	docs, err := r.col.Query(ctx, docstore.Query{
		Filters: []docstore.Filter{filter},
		OrderBy: &docstore.Order{Field: "date", Desc: true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	appointments := make([]*Appointment, 0, len(docs))
	for _, doc := range docs {
		appointments = append(appointments, FromDoc(doc))
	}

	// The store ordered by date alone; re-sort on date+time for the
	// documented newest-first ordering.
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].SortKey() > appointments[j].SortKey()
	})
	return appointments, nil
}

// Patch merges partial fields and re-stamps updatedAt.
func (r *Repository) Patch(ctx context.Context, id string, partial docstore.Document) (*Appointment, error) {
	partial["updatedAt"] = record.DateOnly(r.now())
	if err := r.col.Merge(ctx, id, partial); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrAppointmentNotFound
		}
		log.Printf("appointment: failed to update %s: %v", id, err)
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the appointment by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.col.Delete(ctx, id); err != nil {
		log.Printf("appointment: failed to delete %s: %v", id, err)
		return err
	}
	return nil
}

func optional(s string) interface{} {
	if s == "" {
		return docstore.Undefined
	}
	return s
}
