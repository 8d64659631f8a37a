package measurement

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

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

type MeasurementSuccessResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Measurement *Measurement `json:"measurement,omitempty"`
}

type MeasurementListResponse struct {
	Success      bool            `json:"success"`
	Measurements []*Measurement  `json:"measurements"`
	Total        int             `json:"total"`
	Pagination   pagination.Meta `json:"pagination"`
}

func (h *Handler) CreateMeasurement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	// Patients always record against their own profile.
	if actor.Role == users.RolePatient {
		req.PatientID = actor.ID
		req.PatientName = actor.DisplayName()
	}

	m, err := h.service.CreateMeasurement(r.Context(), &req)
	if err != nil {
		h.respondServiceError(w, err, "creation_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(MeasurementSuccessResponse{
		Success:     true,
		Message:     "Measurement recorded successfully",
		Measurement: m,
	})
}

func (h *Handler) ListMeasurements(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	patientID := r.URL.Query().Get("patientId")
	if actor.Role == users.RolePatient {
		patientID = actor.ID
	}

	measurements, err := h.service.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.respondServiceError(w, err, "list_failed")
		return
	}

	h.respondList(w, r, measurements)
}

// ListRecent returns the readings from the trailing window, seven days
// by default.
func (h *Handler) ListRecent(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	patientID := r.URL.Query().Get("patientId")
	if actor.Role == users.RolePatient {
		patientID = actor.ID
	}

	days := 7
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil {
			days = d
		}
	}

	measurements, err := h.service.Recent(r.Context(), patientID, days)
	if err != nil {
		h.respondServiceError(w, err, "list_failed")
		return
	}

	h.respondList(w, r, measurements)
}

func (h *Handler) GetMeasurement(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	m, err := h.service.GetMeasurement(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeasurementSuccessResponse{
		Success:     true,
		Message:     "Measurement retrieved successfully",
		Measurement: m,
	})
}

func (h *Handler) UpdateMeasurement(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	m, err := h.service.UpdateMeasurement(r.Context(), id, &req)
	if err != nil {
		h.respondServiceError(w, err, "update_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeasurementSuccessResponse{
		Success:     true,
		Message:     "Measurement updated successfully",
		Measurement: m,
	})
}

func (h *Handler) DeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteMeasurement(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "delete_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeasurementSuccessResponse{
		Success: true,
		Message: "Measurement deleted successfully",
	})
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, measurements []*Measurement) {
	params := pagination.ParseParams(r)
	params.Validate()
	total := len(measurements)
	start, end := params.PageBounds(total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MeasurementListResponse{
		Success:      true,
		Measurements: measurements[start:end],
		Total:        total,
		Pagination:   params.CalculateMeta(total),
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrMeasurementNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Measurement not found")
	case errors.Is(err, ErrMissingPatient),
		errors.Is(err, ErrInvalidWeight),
		errors.Is(err, ErrNegativeWater),
		errors.Is(err, ErrNegativeEx),
		errors.Is(err, ErrMissingDate),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrInvalidDays):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, ErrPatientRequired):
		respondError(w, http.StatusNotFound, "patient_not_found", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, fallback, err.Error())
	}
}

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

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}
