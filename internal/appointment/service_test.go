package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medtrack/clinic-service/internal/docstore"
	"github.com/medtrack/clinic-service/internal/messaging"
	"github.com/medtrack/clinic-service/internal/testutil"
)

var testToday = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *testutil.MockPublisher) {
	store := docstore.NewMemoryStore()
	publisher := testutil.NewMockPublisher()
	repo := NewRepository(store)
	repo.SetClock(func() time.Time { return testToday })
	service := NewService(repo, publisher, nil)
	service.SetClock(func() time.Time { return testToday })
	return service, publisher
}

func validRequest() CreateRequest {
	return CreateRequest{
		PatientID:   "patient-1",
		PatientName: "Mehmet Demir",
		DoctorID:    "doctor-1",
		DoctorName:  "Dr. Ayşe Yılmaz",
		Title:       "Kontrol randevusu",
		Date:        "2025-06-01",
		Time:        "14:30",
	}
}

func TestRequest_StartsPending(t *testing.T) {
	service, publisher := newTestService()

	appt, err := service.Request(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if appt.Status != StatusPending {
		t.Errorf("Expected status pending, got %s", appt.Status)
	}
	if appt.Type != TypeExamination {
		t.Errorf("Expected default type muayene, got %s", appt.Type)
	}
	if appt.DurationMinutes != 30 {
		t.Errorf("Expected default duration 30, got %d", appt.DurationMinutes)
	}

	publisher.AssertEventPublished(t, messaging.EventAppointmentRequested)
	event := publisher.GetLastEventByKey(messaging.EventAppointmentRequested)
	data, ok := event.EventData.(messaging.AppointmentEvent)
	if !ok {
		t.Fatalf("Unexpected event payload type %T", event.EventData)
	}
	if data.Data.NewStatus != StatusPending {
		t.Errorf("Event new status %s, want pending", data.Data.NewStatus)
	}
}

func TestRequest_PastDateRejected(t *testing.T) {
	service, publisher := newTestService()

	req := validRequest()
	req.Date = "2025-04-01"
	_, err := service.Request(context.Background(), req)
	if !errors.Is(err, ErrDateInPast) {
		t.Errorf("Expected ErrDateInPast, got %v", err)
	}
	publisher.AssertEventNotPublished(t, messaging.EventAppointmentRequested)
}

func TestRequest_SameDayAllowed(t *testing.T) {
	service, _ := newTestService()

	req := validRequest()
	req.Date = "2025-05-01"
	appt, err := service.Request(context.Background(), req)
	if err != nil {
		t.Fatalf("Expected same-day request to pass, got %v", err)
	}
	if appt.Date != "2025-05-01" {
		t.Errorf("Unexpected date %s", appt.Date)
	}
}

func TestRequest_Validation(t *testing.T) {
	service, _ := newTestService()

	cases := []struct {
		name    string
		mutate  func(*CreateRequest)
		wantErr error
	}{
		{"missing patient", func(r *CreateRequest) { r.PatientID = "" }, ErrMissingPatient},
		{"missing doctor", func(r *CreateRequest) { r.DoctorID = "" }, ErrMissingDoctor},
		{"missing title", func(r *CreateRequest) { r.Title = "" }, ErrMissingTitle},
		{"missing date", func(r *CreateRequest) { r.Date = "" }, ErrMissingDate},
		{"missing time", func(r *CreateRequest) { r.Time = "" }, ErrMissingTime},
		{"malformed date", func(r *CreateRequest) { r.Date = "01.06.2025" }, ErrInvalidDate},
		{"malformed time", func(r *CreateRequest) { r.Time = "2pm" }, ErrInvalidTime},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := validRequest()
			c.mutate(&req)
			if _, err := service.Request(context.Background(), req); !errors.Is(err, c.wantErr) {
				t.Errorf("Expected %v, got %v", c.wantErr, err)
			}
		})
	}
}

func TestCreate_StartsScheduled(t *testing.T) {
	service, publisher := newTestService()

	appt, err := service.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if appt.Status != StatusScheduled {
		t.Errorf("Expected status scheduled, got %s", appt.Status)
	}
	publisher.AssertEventPublished(t, messaging.EventAppointmentStatusChanged)
}

func TestCreate_UnknownTypeFallsBack(t *testing.T) {
	service, _ := newTestService()

	req := validRequest()
	req.Type = "surgery"
	appt, err := service.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if appt.Type != TypeExamination {
		t.Errorf("Expected fallback to muayene, got %s", appt.Type)
	}
}

func TestApprove_SetsScheduledAndNotes(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	appt, err := service.Request(ctx, validRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	approved, err := service.Approve(ctx, appt.ID, "Aç karnına geliniz")
	if err != nil {
		t.Fatalf("Approve failed: %v", err)
	}
	if approved.Status != StatusScheduled {
		t.Errorf("Expected scheduled, got %s", approved.Status)
	}
	if approved.Notes != "Aç karnına geliniz" {
		t.Errorf("Expected notes to be set, got %q", approved.Notes)
	}
	publisher.AssertEventPublished(t, messaging.EventAppointmentApproved)
}

func TestReject_RequiresReason(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	appt, err := service.Request(ctx, validRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	if _, err := service.Reject(ctx, appt.ID, ""); !errors.Is(err, ErrMissingReason) {
		t.Fatalf("Expected ErrMissingReason, got %v", err)
	}

	// No write and no event without a reason.
	publisher.AssertEventNotPublished(t, messaging.EventAppointmentRejected)
	current, err := service.GetAppointment(ctx, appt.ID)
	if err != nil {
		t.Fatalf("GetAppointment failed: %v", err)
	}
	if current.Status != StatusPending {
		t.Errorf("Expected status unchanged, got %s", current.Status)
	}
}

func TestReject_WithReason(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	appt, err := service.Request(ctx, validRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	rejected, err := service.Reject(ctx, appt.ID, "Uygun saat yok")
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("Expected rejected, got %s", rejected.Status)
	}
	if rejected.RejectionReason != "Uygun saat yok" {
		t.Errorf("Expected rejection reason to persist, got %q", rejected.RejectionReason)
	}
	publisher.AssertEventPublished(t, messaging.EventAppointmentRejected)
}

func TestReject_ReportsActualPriorStatus(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	// Doctor-created appointments start scheduled, not pending; the
	// transition event must carry the real prior status.
	appt, err := service.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.Reject(ctx, appt.ID, "Hasta talebi"); err != nil {
		t.Fatalf("Reject failed: %v", err)
	}

	published := publisher.GetLastEventByKey(messaging.EventAppointmentRejected)
	if published == nil {
		t.Fatal("Expected a rejected event")
	}
	event := published.EventData.(messaging.AppointmentEvent)
	if event.Data.OldStatus != StatusScheduled {
		t.Errorf("Expected old status scheduled, got %q", event.Data.OldStatus)
	}
	if event.Data.NewStatus != StatusRejected {
		t.Errorf("Expected new status rejected, got %q", event.Data.NewStatus)
	}
}

func TestApprove_ReportsActualPriorStatus(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	appt, err := service.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := service.UpdateStatus(ctx, appt.ID, StatusCancelled, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if _, err := service.Approve(ctx, appt.ID, ""); err != nil {
		t.Fatalf("Approve failed: %v", err)
	}

	published := publisher.GetLastEventByKey(messaging.EventAppointmentApproved)
	if published == nil {
		t.Fatal("Expected an approved event")
	}
	event := published.EventData.(messaging.AppointmentEvent)
	if event.Data.OldStatus != StatusCancelled {
		t.Errorf("Expected old status cancelled, got %q", event.Data.OldStatus)
	}
}

func TestUpdateStatus_UnknownValue(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	appt, err := service.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if _, err := service.UpdateStatus(ctx, appt.ID, "archived", ""); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("Expected ErrInvalidStatus, got %v", err)
	}
}

func TestUpdateStatus_RecordsTransition(t *testing.T) {
	service, publisher := newTestService()
	ctx := context.Background()

	appt, err := service.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := service.UpdateStatus(ctx, appt.ID, StatusCompleted, "Muayene tamamlandı")
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != StatusCompleted {
		t.Errorf("Expected completed, got %s", updated.Status)
	}

	event := publisher.GetLastEventByKey(messaging.EventAppointmentStatusChanged)
	data, ok := event.EventData.(messaging.AppointmentEvent)
	if !ok {
		t.Fatalf("Unexpected event payload type %T", event.EventData)
	}
	if data.Data.OldStatus != StatusScheduled || data.Data.NewStatus != StatusCompleted {
		t.Errorf("Expected scheduled->completed transition, got %s->%s", data.Data.OldStatus, data.Data.NewStatus)
	}
}

func TestListByDoctor_NewestFirst(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	dates := []struct{ date, clock string }{
		{"2025-06-01", "09:00"},
		{"2025-06-03", "11:00"},
		{"2025-06-01", "16:00"},
	}
	for _, d := range dates {
		req := validRequest()
		req.Date = d.date
		req.Time = d.clock
		if _, err := service.Create(ctx, req); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	appts, err := service.ListByDoctor(ctx, "doctor-1")
	if err != nil {
		t.Fatalf("ListByDoctor failed: %v", err)
	}
	if len(appts) != 3 {
		t.Fatalf("Expected 3 appointments, got %d", len(appts))
	}
	want := []string{"2025-06-03 11:00", "2025-06-01 16:00", "2025-06-01 09:00"}
	for i, appt := range appts {
		if appt.SortKey() != want[i] {
			t.Errorf("Position %d: got %s, want %s", i, appt.SortKey(), want[i])
		}
	}
}

func TestListPendingByDoctor_FiltersStatus(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	pending, err := service.Request(ctx, validRequest())
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	direct := validRequest()
	direct.Date = "2025-06-02"
	if _, err := service.Create(ctx, direct); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	appts, err := service.ListPendingByDoctor(ctx, "doctor-1")
	if err != nil {
		t.Fatalf("ListPendingByDoctor failed: %v", err)
	}
	if len(appts) != 1 {
		t.Fatalf("Expected 1 pending appointment, got %d", len(appts))
	}
	if appts[0].ID != pending.ID {
		t.Errorf("Unexpected pending appointment %s", appts[0].ID)
	}
}

func TestDeleteAppointment_Idempotent(t *testing.T) {
	service, _ := newTestService()
	ctx := context.Background()

	appt, err := service.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := service.DeleteAppointment(ctx, appt.ID); err != nil {
		t.Fatalf("DeleteAppointment failed: %v", err)
	}
	if err := service.DeleteAppointment(ctx, appt.ID); err != nil {
		t.Errorf("Expected repeated delete to succeed, got %v", err)
	}
	if _, err := service.GetAppointment(ctx, appt.ID); !errors.Is(err, ErrAppointmentNotFound) {
		t.Errorf("Expected appointment gone, got %v", err)
	}
}
