package telemetry

import (
	"context"
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all custom metrics for the service. A nil *Metrics is
// valid; every Record method becomes a no-op, which keeps services
// usable in tests and when the meter provider is unavailable.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	EntityOperationsTotal       metric.Int64Counter
	AppointmentTransitionsTotal metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("github.com/medtrack/clinic-service")

	httpRequestsTotal, err := meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	httpDurationMs, err := meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	entityOperationsTotal, err := meter.Int64Counter(
		"entity_operations_total",
		metric.WithDescription("Total number of entity operations by entity and operation"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	appointmentTransitionsTotal, err := meter.Int64Counter(
		"appointment_transitions_total",
		metric.WithDescription("Total number of appointment status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	authFailuresTotal, err := meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	permissionCheckDuration, err := meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	log.Println("✓ Custom metrics initialized")

	return &Metrics{
		HTTPRequestsTotal:           httpRequestsTotal,
		HTTPDurationMs:              httpDurationMs,
		EntityOperationsTotal:       entityOperationsTotal,
		AppointmentTransitionsTotal: appointmentTransitionsTotal,
		AuthFailuresTotal:           authFailuresTotal,
		PermissionCheckDuration:     permissionCheckDuration,
	}, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordEntityOperation records a create, update or delete against one
// of the clinical entities (patient, appointment, measurement, diet_plan).
func (m *Metrics) RecordEntityOperation(ctx context.Context, entity, operation string) {
	if m == nil {
		return
	}
	m.EntityOperationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
	))
}

// RecordAppointmentTransition records an appointment status change
func (m *Metrics) RecordAppointmentTransition(ctx context.Context, oldStatus, newStatus string) {
	if m == nil {
		return
	}
	m.AppointmentTransitionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("old_status", oldStatus),
		attribute.String("new_status", newStatus),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	if m == nil {
		return
	}
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}
