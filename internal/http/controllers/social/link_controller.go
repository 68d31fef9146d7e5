package social

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	mw "github.com/santhoshmp/LearningPlanner-sub010/internal/http/middlewares"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
)

// LinkController vincula providers extra a una cuenta ya autenticada.
type LinkController struct {
	service   svc.ReconcileService
	exchanger *codeExchanger
}

// Link maneja POST /v1/auth/social/{provider}/link.
func (c *LinkController) Link(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LinkController.Link"))

	user, ok := mw.GetAuthUser(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	provider, err := providers.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider.WithDetail(chi.URLParam(r, "provider")))
		return
	}

	var req dto.LinkRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.State == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("code and state are required"))
		return
	}

	info, tokens, appErr := c.exchanger.exchange(ctx, provider, req.Code, req.State, req.User)
	if appErr != nil {
		httperrors.WriteError(w, appErr)
		return
	}

	link, err := c.service.Link(ctx, user.ID, svc.CallbackInput{
		Provider:  provider,
		UserInfo:  *info,
		Tokens:    *tokens,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var conflict *svc.AccountLinkConflictError
		if errors.As(err, &conflict) {
			httperrors.WriteError(w, httperrors.ErrLinkConflict.WithDetail(conflict.Error()))
			return
		}
		log.Error("link failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, toLinkResponse(link))
}

// Conflicts maneja GET /v1/auth/social/{provider}/conflicts: pre-flight
// read-only para que el frontend avise antes de intentar el link.
func (c *LinkController) Conflicts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, ok := mw.GetAuthUser(ctx)
	if !ok {
		httperrors.WriteError(w, httperrors.ErrUnauthorized)
		return
	}
	provider, err := providers.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider.WithDetail(chi.URLParam(r, "provider")))
		return
	}

	q := r.URL.Query()
	providerUserID := q.Get("providerUserId")
	if providerUserID == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("providerUserId is required"))
		return
	}

	report, err := c.service.CheckConflicts(ctx, user.ID, provider, providers.UserInfo{
		ID:    providerUserID,
		Email: q.Get("email"),
	})
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	helpers.WriteJSON(w, http.StatusOK, dto.ConflictResponse{
		HasConflict:  report.HasConflict,
		ConflictType: string(report.ConflictType),
		Details:      report.Details,
	})
}
