package vacation

import (
	"context"

	"github.com/focusshift/zeiterfassung/internal/absence"
	"go.uber.org/zap"
)

// AbsenceWriter is the write side the events are applied to
type AbsenceWriter interface {
	AddAbsence(ctx context.Context, w absence.Write) error
	DeleteAbsence(ctx context.Context, w absence.Write) error
}

// Handler applies vacation application events to absences.
// Events that cannot be mapped are logged and skipped; storage errors are returned.
type Handler struct {
	absences AbsenceWriter
	logger   *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(absences AbsenceWriter, logger *zap.Logger) *Handler {
	return &Handler{absences: absences, logger: logger}
}

// OnApplicationAllowed adds the absence of an approved application
func (h *Handler) OnApplicationAllowed(ctx context.Context, event ApplicationAllowedEvent) error {
	h.received("ApplicationAllowedEvent", event.ApplicationEvent)
	return h.apply(ctx, "ApplicationAllowedEvent", event.ApplicationEvent, h.absences.AddAbsence)
}

// OnApplicationCreatedFromSickNote adds the absence of a converted sick note
func (h *Handler) OnApplicationCreatedFromSickNote(ctx context.Context, event ApplicationCreatedFromSickNoteEvent) error {
	h.received("ApplicationCreatedFromSickNoteEvent", event.ApplicationEvent)
	return h.apply(ctx, "ApplicationCreatedFromSickNoteEvent", event.ApplicationEvent, h.absences.AddAbsence)
}

// OnApplicationCancelled removes the absence of a cancelled application
func (h *Handler) OnApplicationCancelled(ctx context.Context, event ApplicationCancelledEvent) error {
	h.received("ApplicationCancelledEvent", event.ApplicationEvent)
	return h.apply(ctx, "ApplicationCancelledEvent", event.ApplicationEvent, h.absences.DeleteAbsence)
}

func (h *Handler) received(name string, event ApplicationEvent) {
	h.logger.Info("Received "+name,
		zap.String("event_id", event.ID.String()),
		zap.String("person", event.Person.Username),
		zap.String("tenant_id", event.TenantID))
}

func (h *Handler) apply(ctx context.Context, name string, event ApplicationEvent, write func(context.Context, absence.Write) error) error {
	w, err := ToAbsence(event)
	if err != nil {
		h.logger.Info("Could not map "+name+" to absence, skipping",
			zap.String("event_id", event.ID.String()),
			zap.String("tenant_id", event.TenantID),
			zap.Error(err))
		return nil
	}
	return write(ctx, w)
}
