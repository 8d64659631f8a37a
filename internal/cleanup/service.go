package cleanup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/record"
	"github.com/medtrack/clinic-service/internal/users"
)

// Service removes clinical documents whose patient no longer exists.
// Patient deletion does not cascade, so appointments, measurements and
// diet plans can be left dangling until this sweep runs.
type Service struct {
	store docstore.Store
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store}
}

// Result summarizes one sweep.
type Result struct {
	Scanned int
	Deleted int
}

var sweptCollections = []string{
	docstore.CollectionAppointments,
	docstore.CollectionMeasurements,
	docstore.CollectionDietPlans,
}

// CountOrphans reports how many documents reference missing patients
// without deleting anything.
func (s *Service) CountOrphans(ctx context.Context) (int, error) {
	live, err := s.livePatients(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range sweptCollections {
		docs, err := s.store.Collection(name).Query(ctx, docstore.Query{})
		if err != nil {
			return 0, fmt.Errorf("querying %s: %w", name, err)
		}
		for _, doc := range docs {
			if s.orphaned(doc, live) {
				count++
			}
		}
	}
	return count, nil
}

// Sweep deletes every document whose patientId no longer resolves.
func (s *Service) Sweep(ctx context.Context) (*Result, error) {
	live, err := s.livePatients(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, name := range sweptCollections {
		col := s.store.Collection(name)
		docs, err := col.Query(ctx, docstore.Query{})
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", name, err)
		}

		for _, doc := range docs {
			result.Scanned++
			if !s.orphaned(doc, live) {
				continue
			}
			id := record.Str(doc, "id")
			if err := col.Delete(ctx, id); err != nil {
				if errors.Is(err, docstore.ErrNotFound) {
					continue
				}
				return result, fmt.Errorf("deleting orphan %s/%s: %w", name, id, err)
			}
			log.Printf("Deleted orphaned document %s/%s (patient %s)", name, id, record.Str(doc, "patientId"))
			result.Deleted++
		}
	}
	return result, nil
}

// livePatients collects the IDs of every existing patient record.
func (s *Service) livePatients(ctx context.Context) (map[string]struct{}, error) {
	docs, err := s.store.Collection(docstore.CollectionUsers).Query(ctx, docstore.Query{
		Filters: []docstore.Filter{{Field: "userType", Value: users.RolePatient}},
	})
	if err != nil {
		return nil, fmt.Errorf("querying patients: %w", err)
	}

	live := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		live[record.Str(doc, "id")] = struct{}{}
	}
	return live, nil
}

func (s *Service) orphaned(doc docstore.Document, live map[string]struct{}) bool {
	patientID := record.Str(doc, "patientId")
	if patientID == "" {
		return false
	}
	_, ok := live[patientID]
	return !ok
}
