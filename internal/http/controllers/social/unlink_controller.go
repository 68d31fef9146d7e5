package social

import (
	"errors"
	"net/http"

	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	mw "github.com/santhoshmp/LearningPlanner-sub010/internal/http/middlewares"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

// UnlinkController desvincula providers de la cuenta autenticada.
type UnlinkController struct {
	service svc.LifecycleService
}

// Unlink maneja POST /v1/auth/social/unlink.
func (c *UnlinkController) Unlink(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("UnlinkController.Unlink"))

	user, ok := mw.GetAuthUser(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}

	var req dto.UnlinkRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if len(req.Providers) == 0 {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("providers list is empty"))
		return
	}

	provs := make([]providers.Provider, 0, len(req.Providers))
	for _, raw := range req.Providers {
		p, err := providers.Parse(raw)
		if err != nil {
			httperrors.WriteError(w, httperrors.ErrUnsupportedProvider.WithDetail(raw))
			return
		}
		provs = append(provs, p)
	}

	report, err := c.service.BulkUnlink(ctx, user.ID, provs)
	if err != nil {
		if errors.Is(err, svc.ErrLastFactor) {
			httperrors.WriteError(w, httperrors.ErrLastFactor)
			return
		}
		log.Error("bulk unlink failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.UnlinkResponse{
		Success: report.Success,
		Failed:  report.Failed,
		Errors:  report.Errors,
	})
}
