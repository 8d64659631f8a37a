package dietplan

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

type DietPlanSuccessResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	DietPlan *DietPlan `json:"dietPlan,omitempty"`
}

type DietPlanListResponse struct {
	Success    bool            `json:"success"`
	DietPlans  []*DietPlan     `json:"dietPlans"`
	Total      int             `json:"total"`
	Pagination pagination.Meta `json:"pagination"`
}

func (h *Handler) CreateDietPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can create diet plans")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	plan, err := h.service.CreateDietPlan(r.Context(), &req, actor.ID)
	if err != nil {
		h.respondServiceError(w, err, "creation_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(DietPlanSuccessResponse{
		Success:  true,
		Message:  "Diet plan created successfully",
		DietPlan: plan,
	})
}

func (h *Handler) ListDietPlans(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	patientID := r.URL.Query().Get("patientId")
	if actor.Role == users.RolePatient {
		patientID = actor.ID
	}

	plans, err := h.service.ListByPatient(r.Context(), patientID)
	if err != nil {
		h.respondServiceError(w, err, "list_failed")
		return
	}

	params := pagination.ParseParams(r)
	params.Validate()
	total := len(plans)
	start, end := params.PageBounds(total)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DietPlanListResponse{
		Success:    true,
		DietPlans:  plans[start:end],
		Total:      total,
		Pagination: params.CalculateMeta(total),
	})
}

func (h *Handler) GetDietPlan(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.currentUser(w, r); !ok {
		return
	}

	id := mux.Vars(r)["id"]
	plan, err := h.service.GetDietPlan(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, "get_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DietPlanSuccessResponse{
		Success:  true,
		Message:  "Diet plan retrieved successfully",
		DietPlan: plan,
	})
}

func (h *Handler) UpdateDietPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can update diet plans")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}

	id := mux.Vars(r)["id"]
	plan, err := h.service.UpdateDietPlan(r.Context(), id, &req)
	if err != nil {
		h.respondServiceError(w, err, "update_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DietPlanSuccessResponse{
		Success:  true,
		Message:  "Diet plan updated successfully",
		DietPlan: plan,
	})
}

func (h *Handler) DeleteDietPlan(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if actor.Role != users.RoleDoctor {
		respondError(w, http.StatusForbidden, "forbidden", "Only doctors can delete diet plans")
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.service.DeleteDietPlan(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "delete_failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(DietPlanSuccessResponse{
		Success: true,
		Message: "Diet plan deleted successfully",
	})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, ErrDietPlanNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Diet plan not found")
	case errors.Is(err, ErrMissingPatient),
		errors.Is(err, ErrMissingTitle),
		errors.Is(err, ErrMissingDate),
		errors.Is(err, ErrInvalidDate),
		errors.Is(err, ErrNoMeals),
		errors.Is(err, ErrNegativeWater):
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
