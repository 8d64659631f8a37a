package cleanup

import (
	"context"
	"testing"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/users"
)

func seedPatient(t *testing.T, store docstore.Store) string {
	t.Helper()
	id, err := store.Collection(docstore.CollectionUsers).Add(context.Background(), docstore.Document{
		"userType":  users.RolePatient,
		"firstName": "Mehmet",
		"lastName":  "Demir",
		"doctorId":  "doctor-1",
	})
	if err != nil {
		t.Fatalf("Failed to seed patient: %v", err)
	}
	return id
}

func seedChild(t *testing.T, store docstore.Store, collection, patientID string) string {
	t.Helper()
	doc := docstore.Document{"date": "2025-06-01"}
	if patientID != "" {
		doc["patientId"] = patientID
	}
	id, err := store.Collection(collection).Add(context.Background(), doc)
	if err != nil {
		t.Fatalf("Failed to seed %s document: %v", collection, err)
	}
	return id
}

func TestSweep_DeletesOnlyOrphans(t *testing.T) {
	store := docstore.NewMemoryStore()
	service := NewService(store)
	ctx := context.Background()

	patientID := seedPatient(t, store)
	keptAppt := seedChild(t, store, docstore.CollectionAppointments, patientID)
	orphanAppt := seedChild(t, store, docstore.CollectionAppointments, "deleted-patient")
	orphanMeasurement := seedChild(t, store, docstore.CollectionMeasurements, "deleted-patient")
	orphanPlan := seedChild(t, store, docstore.CollectionDietPlans, "deleted-patient")

	count, err := service.CountOrphans(ctx)
	if err != nil {
		t.Fatalf("CountOrphans failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 orphans, got %d", count)
	}

	result, err := service.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Scanned != 4 {
		t.Errorf("Expected 4 scanned, got %d", result.Scanned)
	}
	if result.Deleted != 3 {
		t.Errorf("Expected 3 deleted, got %d", result.Deleted)
	}

	if _, err := store.Collection(docstore.CollectionAppointments).Get(ctx, keptAppt); err != nil {
		t.Errorf("Live patient's appointment should survive, got %v", err)
	}
	for _, gone := range []struct{ col, id string }{
		{docstore.CollectionAppointments, orphanAppt},
		{docstore.CollectionMeasurements, orphanMeasurement},
		{docstore.CollectionDietPlans, orphanPlan},
	} {
		if _, err := store.Collection(gone.col).Get(ctx, gone.id); err == nil {
			t.Errorf("Orphan %s/%s should have been deleted", gone.col, gone.id)
		}
	}
}

func TestSweep_SkipsDocsWithoutPatientReference(t *testing.T) {
	store := docstore.NewMemoryStore()
	service := NewService(store)
	ctx := context.Background()

	id := seedChild(t, store, docstore.CollectionAppointments, "")

	result, err := service.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if result.Deleted != 0 {
		t.Errorf("Expected nothing deleted, got %d", result.Deleted)
	}
	if _, err := store.Collection(docstore.CollectionAppointments).Get(ctx, id); err != nil {
		t.Errorf("Document without a patient reference should survive, got %v", err)
	}
}

func TestCountOrphans_EmptyStore(t *testing.T) {
	service := NewService(docstore.NewMemoryStore())

	count, err := service.CountOrphans(context.Background())
	if err != nil {
		t.Fatalf("CountOrphans failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Expected 0 orphans, got %d", count)
	}
}
