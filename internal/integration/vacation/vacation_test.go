package vacation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"github.com/focusshift/zeiterfassung/pkg/dateutil"
	"go.uber.org/zap"
)

const allowedPayload = `{
  "id": "3f7c9a34-8c53-4a3f-9b1e-2a6f70c9d3a1",
  "sourceId": 42,
  "createdAt": "2024-06-20T10:15:00Z",
  "tenantId": "acme",
  "person": {"personId": 7, "username": "b6f3a0f0-alice"},
  "appliedBy": {"personId": 7, "username": "b6f3a0f0-alice"},
  "allowedBy": {"personId": 1, "username": "boss"},
  "vacationType": {
    "sourceId": 1000,
    "category": "HOLIDAY",
    "requiresApprovalToApply": true,
    "requiresApprovalToCancel": true,
    "color": "YELLOW",
    "visibleToEveryone": true
  },
  "period": {"startDate": "2024-07-01", "endDate": "2024-07-05", "dayLength": "FULL"},
  "absentWorkingDays": ["2024-07-01", "2024-07-02", "2024-07-03", "2024-07-04", "2024-07-05"]
}`

type recordingWriter struct {
	added   []absence.Write
	deleted []absence.Write
	err     error
}

func (w *recordingWriter) AddAbsence(_ context.Context, a absence.Write) error {
	w.added = append(w.added, a)
	return w.err
}

func (w *recordingWriter) DeleteAbsence(_ context.Context, a absence.Write) error {
	w.deleted = append(w.deleted, a)
	return w.err
}

func allowedEvent(t *testing.T) ApplicationAllowedEvent {
	t.Helper()
	var event ApplicationAllowedEvent
	if err := json.Unmarshal([]byte(allowedPayload), &event); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	return event
}

func TestToAbsence(t *testing.T) {
	event := allowedEvent(t)

	w, err := ToAbsence(event.ApplicationEvent)
	if err != nil {
		t.Fatalf("ToAbsence() error = %v", err)
	}

	if w.TenantID != "acme" || w.SourceID != 42 || w.UserID != "b6f3a0f0-alice" {
		t.Errorf("ToAbsence() identification = %s/%d/%s", w.TenantID, w.SourceID, w.UserID)
	}
	if w.StartDate != dateutil.Date(2024, 7, 1) || w.EndDate != dateutil.Date(2024, 7, 5) {
		t.Errorf("ToAbsence() period = %s to %s", dateutil.FormatDate(w.StartDate), dateutil.FormatDate(w.EndDate))
	}
	if w.Type != (absence.Type{Category: absence.CategoryHoliday, SourceID: 1000}) {
		t.Errorf("ToAbsence() type = %v", w.Type)
	}
	if w.DayLength != absence.Full || w.Color != absence.Yellow {
		t.Errorf("ToAbsence() day length/color = %s/%s", w.DayLength, w.Color)
	}
}

func TestToAbsence_Unmappable(t *testing.T) {
	tests := []struct {
		name   string
		modify func(e *ApplicationEvent)
	}{
		{"no absent working days", func(e *ApplicationEvent) { e.AbsentWorkingDays = nil }},
		{"unknown day length", func(e *ApplicationEvent) { e.Period.DayLength = "EVENING" }},
		{"unknown category", func(e *ApplicationEvent) { e.VacationType.Category = "VACATION" }},
		{"unknown color", func(e *ApplicationEvent) { e.VacationType.Color = "BLACK" }},
		{"invalid tenant", func(e *ApplicationEvent) { e.TenantID = "ACME Corp" }},
		{"missing person", func(e *ApplicationEvent) { e.Person.Username = "" }},
		{"end before start", func(e *ApplicationEvent) { e.Period.EndDate = "2024-06-30" }},
		{"malformed date", func(e *ApplicationEvent) { e.Period.StartDate = "01.07.2024" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := allowedEvent(t).ApplicationEvent
			tt.modify(&event)
			if _, err := ToAbsence(event); err == nil {
				t.Error("ToAbsence() should fail")
			}
		})
	}
}

func TestHandler(t *testing.T) {
	ctx := context.Background()
	writer := &recordingWriter{}
	handler := NewHandler(writer, zap.NewNop())
	event := allowedEvent(t)

	if err := handler.OnApplicationAllowed(ctx, event); err != nil {
		t.Fatalf("OnApplicationAllowed() error = %v", err)
	}
	if err := handler.OnApplicationCreatedFromSickNote(ctx, ApplicationCreatedFromSickNoteEvent{ApplicationEvent: event.ApplicationEvent}); err != nil {
		t.Fatalf("OnApplicationCreatedFromSickNote() error = %v", err)
	}
	if err := handler.OnApplicationCancelled(ctx, ApplicationCancelledEvent{ApplicationEvent: event.ApplicationEvent}); err != nil {
		t.Fatalf("OnApplicationCancelled() error = %v", err)
	}

	if len(writer.added) != 2 || len(writer.deleted) != 1 {
		t.Errorf("added %d, deleted %d, want 2 and 1", len(writer.added), len(writer.deleted))
	}
}

func TestHandler_SkipsUnmappableEvent(t *testing.T) {
	writer := &recordingWriter{}
	handler := NewHandler(writer, zap.NewNop())
	event := allowedEvent(t)
	event.AbsentWorkingDays = []string{}

	if err := handler.OnApplicationAllowed(context.Background(), event); err != nil {
		t.Errorf("OnApplicationAllowed() error = %v, want nil for a skipped event", err)
	}
	if len(writer.added) != 0 {
		t.Errorf("added %d absences, want none", len(writer.added))
	}
}

func TestHandler_ReturnsStorageError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("database is down")}
	handler := NewHandler(writer, zap.NewNop())

	if err := handler.OnApplicationAllowed(context.Background(), allowedEvent(t)); err == nil {
		t.Error("OnApplicationAllowed() should return the storage error")
	}
}
