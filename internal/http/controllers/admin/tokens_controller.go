package admin

import (
	"net/http"

	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/metrics"
)

// TokensController dispara operaciones de ciclo de vida de tokens.
type TokensController struct {
	lifecycle svc.LifecycleService
}

// NewTokensController crea el controller de tokens.
func NewTokensController(lc svc.LifecycleService) *TokensController {
	return &TokensController{lifecycle: lc}
}

// Cleanup maneja POST /v1/admin/tokens/cleanup: corre el sweep de tokens
// expirados y devuelve el reporte.
func (c *TokensController) Cleanup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokensController.Cleanup"))

	report, err := c.lifecycle.CleanupExpired(ctx)
	if err != nil {
		log.Error("cleanup sweep failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordTokenCleanup(report.Refreshed, report.Skipped, report.Failed)

	out := dto.CleanupResponse{
		Refreshed: report.Refreshed,
		Skipped:   report.Skipped,
		Failed:    report.Failed,
		Errors:    make([]dto.CleanupEntryError, 0, len(report.Errors)),
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, dto.CleanupEntryError{
			LinkID:   e.LinkID,
			Provider: e.Provider,
			Reason:   e.Reason,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}
