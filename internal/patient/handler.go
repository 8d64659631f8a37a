package patient

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/pagination"
	"github.com/medtrack/clinic-service/internal/users"
)

type Handler struct {
	service *Service
	users   *users.Repository
}

func NewHandler(service *Service, userRepo *users.Repository) *Handler {
	return &Handler{
		service: service,
		users:   userRepo,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type PatientSuccessResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Patient *Patient `json:"patient,omitempty"`
}

type PatientListResponse struct {
	Success    bool            `json:"success"`
	Patients   []*Patient      `json:"patients"`
	Total      int             `json:"total"`
	Pagination pagination.Meta `json:"pagination"`
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can create patients")
		return
	}

	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	p, err := h.service.CreatePatient(r.Context(), actor.ID, req)
	if err != nil {
		if isValidationError(err) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "creation_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(PatientSuccessResponse{
		Success: true,
		Message: "Patient created successfully",
		Patient: p,
	})
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	doctorID := actor.ID
	if actor.Role != users.RoleDoctor {
		// Patients may only see their own doctor's roster entry via GetPatient.
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can list patients")
		return
	}

	patients, err := h.service.ListPatients(r.Context(), doctorID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	params := pagination.ParseParams(r)
	params.Validate()
	total := len(patients)
	start, end := params.PageBounds(total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PatientListResponse{
		Success:    true,
		Patients:   patients[start:end],
		Total:      total,
		Pagination: params.CalculateMeta(total),
	})
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	p, err := h.service.GetPatient(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Patient not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PatientSuccessResponse{
		Success: true,
		Message: "Patient retrieved successfully",
		Patient: p,
	})
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	p, err := h.service.UpdatePatient(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Patient not found")
			return
		}
		if isValidationError(err) {
			respondError(w, http.StatusBadRequest, "validation_error", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PatientSuccessResponse{
		Success: true,
		Message: "Patient updated successfully",
		Patient: p,
	})
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can delete patients")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeletePatient(r.Context(), id); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Patient not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(PatientSuccessResponse{
		Success: true,
		Message: "Patient deleted successfully",
	})
}

// currentUser resolves the application user behind the request token.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (*users.User, bool) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return nil, false
	}
	actor, err := h.users.GetByAuthID(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unknown_user", "User record not found")
		return nil, false
	}
	return actor, true
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrMissingFirstName),
		errors.Is(err, ErrMissingLastName),
		errors.Is(err, ErrInvalidBirthDate),
		errors.Is(err, ErrInvalidHeight),
		errors.Is(err, ErrInvalidWeight),
		errors.Is(err, ErrInvalidStress),
		errors.Is(err, ErrInvalidExercise):
		return true
	}
	return false
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}
