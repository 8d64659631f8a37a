package appointment

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

type AppointmentSuccessResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Appointment *Appointment `json:"appointment,omitempty"`
}

type AppointmentListResponse struct {
	Success      bool            `json:"success"`
	Appointments []*Appointment  `json:"appointments"`
	Total        int             `json:"total"`
	Pagination   pagination.Meta `json:"pagination"`
}

type approveRequest struct {
	Notes string `json:"notes,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type statusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

// CreateAppointment books a scheduled appointment directly. Doctor flow.
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can create appointments directly")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.DoctorID == "" {
		req.DoctorID = actor.ID
		req.DoctorName = actor.DisplayName()
	}

	appt, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "creation_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment created successfully",
		Appointment: appt,
	})
}

// RequestAppointment files a pending appointment request. Patient flow.
func (h *Handler) RequestAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if actor.Role == users.RolePatient {
		req.PatientID = actor.ID
		req.PatientName = actor.DisplayName()
		if req.DoctorID == "" {
			req.DoctorID = actor.DoctorID
		}
	}

	appt, err := h.service.Request(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err, "request_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment request submitted",
		Appointment: appt,
	})
}

// ListAppointments returns the caller's appointments. Doctors see their
// schedule; patients see their own visits. A doctor may pass patientId
// to narrow to one patient.
func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var (
		appointments []*Appointment
		err          error
	)
	if actor.Role == users.RoleDoctor {
		if patientID := r.URL.Query().Get("patientId"); patientID != "" {
			appointments, err = h.service.ListByPatient(r.Context(), patientID)
		} else {
			appointments, err = h.service.ListByDoctor(r.Context(), actor.ID)
		}
	} else {
		appointments, err = h.service.ListByPatient(r.Context(), actor.ID)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	h.respondList(w, r, appointments)
}

// ListPending returns a doctor's pending appointment requests.
func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can view pending requests")
		return
	}

	appointments, err := h.service.ListPendingByDoctor(r.Context(), actor.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	h.respondList(w, r, appointments)
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	appt, err := h.service.GetAppointment(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment retrieved successfully",
		Appointment: appt,
	})
}

func (h *Handler) ApproveAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can approve appointments")
		return
	}

	var req approveRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	id := mux.Vars(r)["id"]
	appt, err := h.service.Approve(r.Context(), id, req.Notes)
	if err != nil {
		h.respondServiceError(w, err, "approve_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment approved",
		Appointment: appt,
	})
}

func (h *Handler) RejectAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can reject appointments")
		return
	}

	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	appt, err := h.service.Reject(r.Context(), id, req.Reason)
	if err != nil {
		h.respondServiceError(w, err, "reject_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment rejected",
		Appointment: appt,
	})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	appt, err := h.service.UpdateStatus(r.Context(), id, req.Status, req.Notes)
	if err != nil {
		h.respondServiceError(w, err, "status_update_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success:     true,
		Message:     "Appointment status updated",
		Appointment: appt,
	})
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can delete appointments")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteAppointment(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "delete_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentSuccessResponse{
		Success: true,
		Message: "Appointment deleted successfully",
	})
}

func (h *Handler) respondList(w http.ResponseWriter, r *http.Request, appointments []*Appointment) {
	params := pagination.ParseParams(r)
	params.Validate()
	total := len(appointments)
	start, end := params.PageBounds(total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(AppointmentListResponse{
		Success:      true,
		Appointments: appointments[start:end],
		Total:        total,
		Pagination:   params.CalculateMeta(total),
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Appointment not found")
	case errors.Is(err, ErrMissingTitle),
		errors.Is(err, ErrMissingDate),
		errors.Is(err, ErrMissingTime),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrInvalidTime),
		errors.Is(err, ErrDateInPast),
		errors.Is(err, ErrMissingReason),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrMissingPatient),
		errors.Is(err, ErrMissingDoctor):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
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
