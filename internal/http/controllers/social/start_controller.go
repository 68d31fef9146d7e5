package social

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

// StartController maneja GET /v1/auth/social/{provider}/start.
type StartController struct {
	service svc.StartService
}

// Start construye la authorize URL del provider y devuelve el state.
func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	provider, err := providers.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider.WithDetail(chi.URLParam(r, "provider")))
		return
	}

	res, err := c.service.Start(ctx, provider)
	if err != nil {
		if errors.Is(err, providers.ErrUnsupportedProvider) {
			httperrors.WriteError(w, httperrors.ErrUnsupportedProvider)
			return
		}
		log.Error("start flow failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.StartResponse{
		AuthURL:  res.AuthURL,
		State:    res.State,
		UsesPKCE: res.UsesPKCE,
	})
}
