// Package admin contiene los controllers de la superficie operativa.
package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/audit"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

// AuditController expone la consulta read-only del security trail.
type AuditController struct {
	recorder *audit.Recorder
}

// NewAuditController crea el controller de auditoría.
func NewAuditController(rec *audit.Recorder) *AuditController {
	return &AuditController{recorder: rec}
}

// List maneja GET /v1/admin/audit con filtros por query.
func (c *AuditController) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuditController.List"))

	filter, appErr := parseAuditFilter(r)
	if appErr != nil {
		httperrors.WriteError(w, appErr)
		return
	}

	events, total, err := c.recorder.Query(ctx, filter)
	if err != nil {
		log.Error("audit query failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	out := dto.AuditListResponse{
		Events: make([]dto.AuditEventResponse, 0, len(events)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, ev := range events {
		out.Events = append(out.Events, dto.AuditEventResponse{
			ID:        ev.ID,
			EventType: ev.EventType,
			UserID:    ev.UserID,
			Details:   ev.Details,
			IPAddress: ev.IPAddress,
			UserAgent: ev.UserAgent,
			Timestamp: ev.Timestamp,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

func parseAuditFilter(r *http.Request) (repository.AuditFilter, *httperrors.AppError) {
	q := r.URL.Query()
	filter := repository.AuditFilter{
		Provider:  q.Get("provider"),
		EventType: q.Get("eventType"),
		Limit:     defaultAuditLimit,
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return filter, httperrors.ErrBadRequest.WithDetail("limit must be a positive integer")
		}
		if n > maxAuditLimit {
			n = maxAuditLimit
		}
		filter.Limit = n
	}
	if raw := q.Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return filter, httperrors.ErrBadRequest.WithDetail("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, httperrors.ErrBadRequest.WithDetail("from must be RFC3339")
		}
		filter.From = &t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, httperrors.ErrBadRequest.WithDetail("to must be RFC3339")
		}
		filter.To = &t
	}
	return filter, nil
}
