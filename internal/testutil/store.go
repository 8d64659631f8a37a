package testutil

import (
	"context"
	"testing"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/users"
)

// SeedUser inserts a user document directly into the store and returns
// its generated ID.
func SeedUser(t *testing.T, store docstore.Store, u *users.User) string {
	t.Helper()

	doc := users.ToDoc(u)
	doc["createdAt"] = "2025-01-01"
	doc["updatedAt"] = "2025-01-01"

	id, err := store.Collection(docstore.CollectionUsers).Add(context.Background(), doc)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
	return id
}

// SeedDoctor inserts a doctor record tied to the given auth subject.
func SeedDoctor(t *testing.T, store docstore.Store, authID string) string {
	t.Helper()
	return SeedUser(t, store, &users.User{
		AuthID:    authID,
		Email:     "doctor@example.com",
		FirstName: "Ayşe",
		LastName:  "Yılmaz",
		Role:      users.RoleDoctor,
	})
}

// SeedPatientUser inserts a patient identity record tied to the given
// auth subject and doctor.
func SeedPatientUser(t *testing.T, store docstore.Store, authID, doctorID string) string {
	t.Helper()
	return SeedUser(t, store, &users.User{
		AuthID:    authID,
		Email:     "patient@example.com",
		FirstName: "Mehmet",
		LastName:  "Demir",
		Role:      users.RolePatient,
		DoctorID:  doctorID,
	})
}
