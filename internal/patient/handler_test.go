package patient

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/testutil"
	"github.com/medtrack/clinic-service/internal/users"
)

type handlerFixture struct {
	router       *mux.Router
	doctorAuthID string
	patientAuth  string
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	store := docstore.NewMemoryStore()
	userRepo := users.NewRepository(store)
	doctorID := testutil.SeedDoctor(t, store, "kc-doctor-1")
	testutil.SeedPatientUser(t, store, "kc-patient-1", doctorID)

	service := NewService(NewRepository(store), testutil.NewMockPublisher(), nil)
	handler := NewHandler(service, userRepo)

	r := mux.NewRouter()
	r.HandleFunc("/patients", handler.CreatePatient).Methods("POST")
	r.HandleFunc("/patients", handler.ListPatients).Methods("GET")
	r.HandleFunc("/patients/{id}", handler.GetPatient).Methods("GET")
	r.HandleFunc("/patients/{id}", handler.UpdatePatient).Methods("PUT")
	r.HandleFunc("/patients/{id}", handler.DeletePatient).Methods("DELETE")

	return &handlerFixture{router: r, doctorAuthID: "kc-doctor-1", patientAuth: "kc-patient-1"}
}

func (f *handlerFixture) do(method, path, authID string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if authID != "" {
		principal := &auth.Principal{UserID: authID}
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreatePatientHandler_Success(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("POST", "/patients", f.doctorAuthID, map[string]interface{}{
		"firstName": "Mehmet",
		"lastName":  "Demir",
		"height":    170,
		"weight":    65,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp PatientSuccessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success {
		t.Error("Expected success true")
	}
	if resp.Patient == nil || resp.Patient.BMI != 22.5 {
		t.Errorf("Expected patient with derived BMI, got %+v", resp.Patient)
	}
}

func TestCreatePatientHandler_PatientForbidden(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("POST", "/patients", f.patientAuth, map[string]interface{}{
		"firstName": "X",
		"lastName":  "Y",
		"height":    170,
		"weight":    65,
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for hasta role, got %d", rec.Code)
	}
}

func TestCreatePatientHandler_ValidationError(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("POST", "/patients", f.doctorAuthID, map[string]interface{}{
		"firstName": "",
		"lastName":  "Demir",
		"height":    170,
		"weight":    65,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}

	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != "validation_error" {
		t.Errorf("Expected validation_error, got %q", resp.Error)
	}
}

func TestCreatePatientHandler_Unauthenticated(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("POST", "/patients", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without a principal, got %d", rec.Code)
	}
}

func TestListPatientsHandler_Paginated(t *testing.T) {
	f := newHandlerFixture(t)

	for i := 0; i < 3; i++ {
		rec := f.do("POST", "/patients", f.doctorAuthID, map[string]interface{}{
			"firstName": "Hasta",
			"lastName":  "Demir",
			"height":    170,
			"weight":    65,
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("Seed create failed with %d", rec.Code)
		}
	}

	rec := f.do("GET", "/patients?page=1&limit=2", f.doctorAuthID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp PatientListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	// 3 created profiles plus the registered patient account assigned to
	// this doctor. Every hasta document carrying the doctor's id is part
	// of the roster; there is no separate profile collection.
	if resp.Total != 4 {
		t.Errorf("Expected total 4, got %d", resp.Total)
	}
	if len(resp.Patients) != 2 {
		t.Errorf("Expected 2 patients on page 1, got %d", len(resp.Patients))
	}
}

func TestListPatientsHandler_IncludesRegisteredAccounts(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("GET", "/patients", f.doctorAuthID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var resp PatientListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("Expected the assigned patient account in the roster, got total %d", resp.Total)
	}
	if got := resp.Patients[0].FirstName; got != "Mehmet" {
		t.Errorf("Expected roster entry Mehmet, got %q", got)
	}
}

func TestGetPatientHandler_NotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.do("GET", "/patients/missing-id", f.doctorAuthID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestDeletePatientHandler(t *testing.T) {
	f := newHandlerFixture(t)

	created := f.do("POST", "/patients", f.doctorAuthID, map[string]interface{}{
		"firstName": "Mehmet",
		"lastName":  "Demir",
		"height":    170,
		"weight":    65,
	})
	var resp PatientSuccessResponse
	if err := json.NewDecoder(created.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	rec := f.do("DELETE", "/patients/"+resp.Patient.ID, f.doctorAuthID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = f.do("GET", "/patients/"+resp.Patient.ID, f.doctorAuthID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}
