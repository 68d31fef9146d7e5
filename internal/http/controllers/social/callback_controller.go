package social

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	dto "github.com/santhoshmp/LearningPlanner-sub010/internal/http/dto/social"
	httperrors "github.com/santhoshmp/LearningPlanner-sub010/internal/http/errors"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/http/helpers"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/domain/repository"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/jwt"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/logger"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/metrics"
)

// CallbackController maneja el retorno del provider tras el consent.
// GET para Google/Instagram; Apple vuelve por POST form-post.
type CallbackController struct {
	reconcile svc.ReconcileService
	exchanger *codeExchanger
	issuer    *jwt.Issuer
}

// Callback procesa GET|POST /v1/auth/social/{provider}/callback.
func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("CallbackController.Callback"))

	provider, err := providers.Parse(chi.URLParam(r, "provider"))
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrUnsupportedProvider.WithDetail(chi.URLParam(r, "provider")))
		return
	}

	req, appErr := parseCallbackParams(r)
	if appErr != nil {
		httperrors.WriteError(w, appErr)
		return
	}
	if req.Error != "" {
		// El usuario canceló el consent en el provider.
		metrics.RecordSocialCallback(string(provider), "error")
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("provider returned "+req.Error))
		return
	}

	info, tokens, appErr := c.exchanger.exchange(ctx, provider, req.Code, req.State, req.User)
	if appErr != nil {
		log.Warn("callback exchange failed", logger.Provider(string(provider)), logger.Err(appErr))
		metrics.RecordSocialCallback(string(provider), "error")
		httperrors.WriteError(w, appErr)
		return
	}

	res, err := c.reconcile.HandleCallback(ctx, svc.CallbackInput{
		Provider:  provider,
		UserInfo:  *info,
		Tokens:    *tokens,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		var conflict *svc.AccountLinkConflictError
		if errors.As(err, &conflict) {
			metrics.RecordSocialCallback(string(provider), "conflict")
			httperrors.WriteError(w, httperrors.ErrLinkConflict.WithDetail(conflict.Error()))
			return
		}
		log.Error("callback reconciliation failed", logger.Err(err))
		metrics.RecordSocialCallback(string(provider), "error")
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	session, err := c.issuer.IssueSession(res.Account.ID, res.Account.Role)
	if err != nil {
		log.Error("session issue failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternal.WithCause(err))
		return
	}

	metrics.RecordSocialCallback(string(provider), callbackOutcome(res))
	helpers.WriteJSON(w, http.StatusOK, dto.CallbackResponse{
		User:               toAccountResponse(res.Account),
		AccessToken:        session.AccessToken,
		RefreshToken:       session.RefreshToken,
		TokenType:          session.TokenType,
		ExpiresIn:          session.ExpiresIn,
		IsNewUser:          res.IsNewUser,
		LinkedAccount:      res.LinkedAccount,
		ConflictResolution: res.ConflictResolution,
	})
}

// parseCallbackParams admite query (GET) y form-post (Apple).
func parseCallbackParams(r *http.Request) (*dto.CallbackRequest, *httperrors.AppError) {
	req := &dto.CallbackRequest{}
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Code = q.Get("code")
		req.State = q.Get("state")
		req.Error = q.Get("error")
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			return nil, httperrors.ErrBadRequest.WithDetail("invalid form")
		}
		req.Code = r.FormValue("code")
		req.State = r.FormValue("state")
		req.User = r.FormValue("user")
		req.Error = r.FormValue("error")
	default:
		return nil, httperrors.ErrMethodNotAllowed
	}
	if req.Error == "" && (req.Code == "" || req.State == "") {
		return nil, httperrors.ErrMissingFields.WithDetail("code and state are required")
	}
	return req, nil
}

func callbackOutcome(res *svc.CallbackResult) string {
	switch {
	case res.IsNewUser:
		return "signup"
	case res.LinkedAccount:
		return "linked"
	default:
		return "login"
	}
}

func toAccountResponse(acc *repository.Account) dto.AccountResponse {
	out := dto.AccountResponse{
		ID:              acc.ID,
		Email:           acc.Email,
		Role:            acc.Role,
		DisplayName:     acc.DisplayName,
		IsEmailVerified: acc.IsEmailVerified,
		SocialLinks:     make([]dto.LinkResponse, 0, len(acc.SocialLinks)),
	}
	for _, l := range acc.SocialLinks {
		out.SocialLinks = append(out.SocialLinks, toLinkResponse(&l))
	}
	return out
}

func toLinkResponse(l *repository.SocialAuthLink) dto.LinkResponse {
	return dto.LinkResponse{
		ID:             l.ID,
		Provider:       l.Provider,
		ProviderUserID: l.ProviderUserID,
		ProviderEmail:  l.ProviderEmail,
		ProviderName:   l.ProviderName,
		TokenExpiresAt: l.TokenExpiresAt,
		CreatedAt:      l.CreatedAt,
	}
}
