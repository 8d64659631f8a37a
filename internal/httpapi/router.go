package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/medtrack/clinic-service/internal/appointment"
	"github.com/medtrack/clinic-service/internal/auth"
	"github.com/medtrack/clinic-service/internal/dietplan"
	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/measurement"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/patient"
	"github.com/medtrack/clinic-service/internal/profile"
	"github.com/medtrack/clinic-service/internal/telemetry"
	"github.com/medtrack/clinic-service/internal/users"
)

// Dependencies carries the shared infrastructure the router wires into
// every handler.
type Dependencies struct {
	Store     docstore.Store
	Verifier  *auth.Verifier
	Perms     auth.Permissions
	Provider  auth.IdentityProvider
	Publisher messaging.PublisherInterface
	Metrics   *telemetry.Metrics
	Watcher   *auth.Watcher
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) *mux.Router {
	userRepo := users.NewRepository(deps.Store)
	profileHandler := profile.NewHandler(userRepo)

	patientRepo := patient.NewRepository(deps.Store)
	patientService := patient.NewService(patientRepo, deps.Publisher, deps.Metrics)
	patientHandler := patient.NewHandler(patientService, userRepo)

	apptRepo := appointment.NewRepository(deps.Store)
	apptService := appointment.NewService(apptRepo, deps.Publisher, deps.Metrics)
	apptHandler := appointment.NewHandler(apptService, userRepo)

	measurementRepo := measurement.NewRepository(deps.Store)
	measurementService := measurement.NewService(measurementRepo, patientRepo, deps.Publisher, deps.Metrics)
	measurementHandler := measurement.NewHandler(measurementService, userRepo)

	dietPlanRepo := dietplan.NewRepository(deps.Store)
	dietPlanService := dietplan.NewService(dietPlanRepo, patientRepo, deps.Publisher, deps.Metrics)
	dietPlanHandler := dietplan.NewHandler(dietPlanService, userRepo)

	authService := auth.NewService(deps.Provider, deps.Verifier, userRepo, deps.Watcher, deps.Publisher, deps.Metrics)
	authHandler := auth.NewHandler(authService)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("clinic-service"))

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"clinic-service"}`))
	}).Methods("GET")

	// Public auth endpoints
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/logout", authHandler.Logout).Methods("POST")

	protect := func(permission string, h http.HandlerFunc) http.Handler {
		return auth.MiddlewareWithMetrics(deps.Verifier, deps.Metrics)(
			auth.RequirePermissionWithMetrics(permission, deps.Perms, deps.Metrics)(h),
		)
	}

	// Profile routes
	r.Handle("/users/me", protect("profile:view", profileHandler.GetProfile)).Methods("GET")
	r.Handle("/users/me", protect("profile:update", profileHandler.UpdateProfile)).Methods("PUT")

	// Patient routes (doctor-managed roster)
	r.Handle("/patients", protect("patient:create", patientHandler.CreatePatient)).Methods("POST")
	r.Handle("/patients", protect("patient:view", patientHandler.ListPatients)).Methods("GET")
	r.Handle("/patients/{id}", protect("patient:view", patientHandler.GetPatient)).Methods("GET")
	r.Handle("/patients/{id}", protect("patient:update", patientHandler.UpdatePatient)).Methods("PUT")
	r.Handle("/patients/{id}", protect("patient:delete", patientHandler.DeletePatient)).Methods("DELETE")

	// Appointment routes
	r.Handle("/appointments", protect("appointment:create", apptHandler.CreateAppointment)).Methods("POST")
	r.Handle("/appointments/request", protect("appointment:request", apptHandler.RequestAppointment)).Methods("POST")
	r.Handle("/appointments", protect("appointment:view", apptHandler.ListAppointments)).Methods("GET")
	r.Handle("/appointments/pending", protect("appointment:manage", apptHandler.ListPending)).Methods("GET")
	r.Handle("/appointments/{id}", protect("appointment:view", apptHandler.GetAppointment)).Methods("GET")
	r.Handle("/appointments/{id}/approve", protect("appointment:manage", apptHandler.ApproveAppointment)).Methods("PUT")
	r.Handle("/appointments/{id}/reject", protect("appointment:manage", apptHandler.RejectAppointment)).Methods("PUT")
	r.Handle("/appointments/{id}/status", protect("appointment:update", apptHandler.UpdateStatus)).Methods("PUT")
	r.Handle("/appointments/{id}", protect("appointment:delete", apptHandler.DeleteAppointment)).Methods("DELETE")

	// Measurement routes
	r.Handle("/measurements", protect("measurement:create", measurementHandler.CreateMeasurement)).Methods("POST")
	r.Handle("/measurements", protect("measurement:view", measurementHandler.ListMeasurements)).Methods("GET")
	r.Handle("/measurements/recent", protect("measurement:view", measurementHandler.ListRecent)).Methods("GET")
	r.Handle("/measurements/{id}", protect("measurement:view", measurementHandler.GetMeasurement)).Methods("GET")
	r.Handle("/measurements/{id}", protect("measurement:update", measurementHandler.UpdateMeasurement)).Methods("PUT")
	r.Handle("/measurements/{id}", protect("measurement:delete", measurementHandler.DeleteMeasurement)).Methods("DELETE")

	// Diet plan routes
	r.Handle("/diet-plans", protect("diet_plan:create", dietPlanHandler.CreateDietPlan)).Methods("POST")
	r.Handle("/diet-plans", protect("diet_plan:view", dietPlanHandler.ListDietPlans)).Methods("GET")
	r.Handle("/diet-plans/{id}", protect("diet_plan:view", dietPlanHandler.GetDietPlan)).Methods("GET")
	r.Handle("/diet-plans/{id}", protect("diet_plan:update", dietPlanHandler.UpdateDietPlan)).Methods("PUT")
	r.Handle("/diet-plans/{id}", protect("diet_plan:delete", dietPlanHandler.DeleteDietPlan)).Methods("DELETE")

	return r
}
