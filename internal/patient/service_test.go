package patient

import (
	"context"
	"errors"
	"testing"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/testutil"
)

func newTestService() (*Service, *testutil.MockPublisher) {
	store := docstore.NewMemoryStore()
	publisher := testutil.NewMockPublisher()
	repo := NewRepository(store)
	return NewService(repo, publisher, nil), publisher
}

func validCreateRequest() CreatePatientRequest {
	return CreatePatientRequest{
		FirstName: "Mehmet",
		LastName:  "Demir",
		Email:     "mehmet@example.com",
		BirthDate: "1985-03-12",
		Gender:    "male",
		HeightCM:  170,
		WeightKG:  65,
	}
}

func TestComputeBMI(t *testing.T) {
	cases := []struct {
		height, weight float64
		want           float64
	}{
		{170, 65, 22.5},
		{180, 80, 24.7},
		{160, 90, 35.2},
		{0, 70, 0},
		{-5, 70, 0},
	}
	for _, c := range cases {
		if got := ComputeBMI(c.height, c.weight); got != c.want {
			t.Errorf("ComputeBMI(%v, %v) = %v, want %v", c.height, c.weight, got, c.want)
		}
	}
}

func TestCreatePatient_Success(t *testing.T) {
	service, publisher := newTestService()

	p, err := service.CreatePatient(context.Background(), "doctor-1", validCreateRequest())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	if p.ID == "" {
		t.Error("Expected generated id")
	}
	if p.DoctorID != "doctor-1" {
		t.Errorf("Expected doctorId doctor-1, got %s", p.DoctorID)
	}
	if p.BMI != 22.5 {
		t.Errorf("Expected BMI 22.5, got %v", p.BMI)
	}

	publisher.AssertEventPublished(t, messaging.EventPatientCreated)
	event := publisher.GetLastEventByKey(messaging.EventPatientCreated)
	if event == nil {
		t.Fatal("Expected patient.created event")
	}
	data, ok := event.EventData.(messaging.PatientCreatedEvent)
	if !ok {
		t.Fatalf("Unexpected event payload type %T", event.EventData)
	}
	if data.Data.PatientID != p.ID {
		t.Errorf("Event patient id %s, want %s", data.Data.PatientID, p.ID)
	}
	if data.Data.DoctorID != "doctor-1" {
		t.Errorf("Event doctor id %s, want doctor-1", data.Data.DoctorID)
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	service, publisher := newTestService()

	cases := []struct {
		name    string
		mutate  func(*CreatePatientRequest)
		wantErr error
	}{
		{"missing first name", func(r *CreatePatientRequest) { r.FirstName = "" }, ErrMissingFirstName},
		{"missing last name", func(r *CreatePatientRequest) { r.LastName = "" }, ErrMissingLastName},
		{"zero height", func(r *CreatePatientRequest) { r.HeightCM = 0 }, ErrInvalidHeight},
		{"negative weight", func(r *CreatePatientRequest) { r.WeightKG = -1 }, ErrInvalidWeight},
		{"malformed birth date", func(r *CreatePatientRequest) { r.BirthDate = "12.03.1985" }, ErrInvalidBirthDate},
		{"stress out of range", func(r *CreatePatientRequest) {
			r.Lifestyle = &Lifestyle{StressLevel: 6, ExerciseFrequency: "regular"}
		}, ErrInvalidStress},
		{"unknown exercise frequency", func(r *CreatePatientRequest) {
			r.Lifestyle = &Lifestyle{StressLevel: 3, ExerciseFrequency: "sometimes"}
		}, ErrInvalidExercise},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := validCreateRequest()
			c.mutate(&req)
			_, err := service.CreatePatient(context.Background(), "doctor-1", req)
			if !errors.Is(err, c.wantErr) {
				t.Errorf("Expected %v, got %v", c.wantErr, err)
			}
		})
	}

	publisher.AssertEventNotPublished(t, messaging.EventPatientCreated)
}

func TestUpdatePatient_RecomputesBMI(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	p, err := service.CreatePatient(ctx, "doctor-1", validCreateRequest())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	weight := 72.0
	updated, err := service.UpdatePatient(ctx, p.ID, UpdatePatientRequest{WeightKG: &weight})
	if err != nil {
		t.Fatalf("UpdatePatient failed: %v", err)
	}
	if updated.WeightKG != 72 {
		t.Errorf("Expected weight 72, got %v", updated.WeightKG)
	}
	// 72 / 1.70² rounded to one decimal
	if updated.BMI != 24.9 {
		t.Errorf("Expected BMI 24.9, got %v", updated.BMI)
	}
	if updated.FirstName != "Mehmet" {
		t.Errorf("Unrelated field changed: %s", updated.FirstName)
	}
}

func TestUpdatePatient_Validation(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	p, err := service.CreatePatient(ctx, "doctor-1", validCreateRequest())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	badHeight := -10.0
	if _, err := service.UpdatePatient(ctx, p.ID, UpdatePatientRequest{HeightCM: &badHeight}); !errors.Is(err, ErrInvalidHeight) {
		t.Errorf("Expected ErrInvalidHeight, got %v", err)
	}

	badDate := "not-a-date"
	if _, err := service.UpdatePatient(ctx, p.ID, UpdatePatientRequest{BirthDate: &badDate}); !errors.Is(err, ErrInvalidBirthDate) {
		t.Errorf("Expected ErrInvalidBirthDate, got %v", err)
	}
}

func TestUpdatePatient_NotFound(t *testing.T) {
	service, _ := newTestService()

	name := "Ali"
	_, err := service.UpdatePatient(context.Background(), "missing-id", UpdatePatientRequest{FirstName: &name})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected ErrPatientNotFound, got %v", err)
	}
}

func TestDeletePatient_PublishesEvent(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	p, err := service.CreatePatient(ctx, "doctor-1", validCreateRequest())
	if err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	if err := service.DeletePatient(ctx, p.ID); err != nil {
		t.Fatalf("DeletePatient failed: %v", err)
	}

	publisher.AssertEventPublished(t, messaging.EventPatientDeleted)
	if _, err := service.GetPatient(ctx, p.ID); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("Expected profile gone, got %v", err)
	}
}

func TestListPatients_FiltersByDoctorAndRole(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	if _, err := service.CreatePatient(ctx, "doctor-1", validCreateRequest()); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}
	other := validCreateRequest()
	other.FirstName = "Zeynep"
	if _, err := service.CreatePatient(ctx, "doctor-2", other); err != nil {
		t.Fatalf("CreatePatient failed: %v", err)
	}

	patients, err := service.ListPatients(ctx, "doctor-1")
	if err != nil {
		t.Fatalf("ListPatients failed: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("Expected 1 patient for doctor-1, got %d", len(patients))
	}
	if patients[0].FirstName != "Mehmet" {
		t.Errorf("Unexpected patient %s", patients[0].FirstName)
	}
}
