package profile

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/users"
)

// Handler serves the authenticated user's own record under /users/me.
type Handler struct {
	repo *users.Repository
}

func NewHandler(repo *users.Repository) *Handler {
	return &Handler{repo: repo}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ProfileResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	User    *users.User `json:"user,omitempty"`
}

// GetProfile returns the authenticated user's own record.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	user, err := h.repo.GetByAuthID(r.Context(), principal.UserID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "User record not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "get_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ProfileResponse{
		Success: true,
		Message: "Profile retrieved successfully",
		User:    user,
	})
}

// UpdateProfile changes the authenticated user's display name.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "User not authenticated")
		return
	}

	user, err := h.repo.GetByAuthID(r.Context(), principal.UserID)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "unknown_user", "User record not found")
		return
	}

	var req users.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON payload: "+err.Error())
		return
	}
	if req.FirstName == "" && req.LastName == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "Nothing to update")
		return
	}

	updated, err := h.repo.UpdateProfile(r.Context(), user.ID, req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ProfileResponse{
		Success: true,
		Message: "Profile updated successfully",
		User:    updated,
	})
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorType,
		Message: message,
	})
}
