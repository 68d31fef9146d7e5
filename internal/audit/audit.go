// Package audit registra el trail de eventos de seguridad del core social.
// Los eventos son append-only; este paquete nunca los muta ni borra.
package audit

import (
	"context"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

// Recorder persiste eventos de seguridad y expone la consulta read-only.
type Recorder struct {
	da repository.DataAccess
}

// NewRecorder crea un Recorder sobre el data access dado.
func NewRecorder(da repository.DataAccess) *Recorder {
	return &Recorder{da: da}
}

// Record persiste un evento best-effort: un fallo del trail se loguea pero
// nunca tumba la operación que lo origina.
func (r *Recorder) Record(ctx context.Context, ev repository.AuditEvent) {
	if err := r.da.Repos().Audit.Append(ctx, ev); err != nil {
		logger.From(ctx).Error("audit append failed",
			logger.Component("audit"),
			logger.String("event_type", ev.EventType),
			logger.Err(err),
		)
	}
}

// Query consulta eventos con filtros y paginación.
func (r *Recorder) Query(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEvent, int, error) {
	return r.da.Repos().Audit.Query(ctx, f)
}

// Event arma un AuditEvent con los campos usuales del core social.
func Event(eventType string, userID string, details map[string]any, ip, ua string) repository.AuditEvent {
	ev := repository.AuditEvent{
		EventType: eventType,
		Details:   details,
		IPAddress: ip,
		UserAgent: ua,
	}
	if userID != "" {
		ev.UserID = &userID
	}
	return ev
}
