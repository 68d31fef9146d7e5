// Package router arma el árbol de rutas del servicio.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	admin "github.com/santhoshmp/LearningPlanner-sub010/internal/http/controllers/admin"
	social "github.com/santhoshmp/LearningPlanner-sub010/internal/http/controllers/social"
	mw "github.com/santhoshmp/LearningPlanner-sub010/internal/http/middlewares"
	jwtx "github.com/santhoshmp/LearningPlanner-sub010/internal/jwt"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/observability/metrics"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/rate"
)

// Deps contiene las dependencias para construir el router.
type Deps struct {
	Social      *social.Controllers
	Audit       *admin.AuditController
	Tokens      *admin.TokensController
	Issuer      *jwtx.Issuer
	AdminAPIKey string

	// Metrics es el handler de /metrics; nil lo deshabilita.
	Metrics http.Handler

	// RateLimiter protege los endpoints públicos de social auth; nil lo
	// deshabilita (útil en tests).
	RateLimiter rate.Limiter
}

// New construye el router chi con todas las rutas montadas.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	toChi := func(m mw.Middleware) func(http.Handler) http.Handler { return m }
	r.Use(
		toChi(mw.WithRecover()),
		toChi(mw.WithRequestID()),
		toChi(mw.WithLogging()),
		metrics.WithMetrics(routePattern),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/v1/auth/social", func(r chi.Router) {
		r.Use(
			toChi(mw.WithNoStore()),
			toChi(mw.WithRateLimit(mw.RateLimitConfig{
				Limiter: d.RateLimiter,
				KeyFunc: mw.IPRateKey,
			})),
		)

		r.Get("/{provider}/start", d.Social.Start.Start)
		r.Get("/{provider}/callback", d.Social.Callback.Callback)
		// Apple vuelve por form-post.
		r.Post("/{provider}/callback", d.Social.Callback.Callback)

		r.Group(func(r chi.Router) {
			r.Use(toChi(mw.RequireAuth(d.Issuer)))
			r.Post("/{provider}/link", d.Social.Link.Link)
			r.Get("/{provider}/conflicts", d.Social.Link.Conflicts)
			r.Post("/unlink", d.Social.Unlink.Unlink)
		})
	})

	r.Route("/v1/admin", func(r chi.Router) {
		r.Use(toChi(mw.RequireAdminKey(d.AdminAPIKey)))
		r.Get("/audit", d.Audit.List)
		r.Post("/tokens/cleanup", d.Tokens.Cleanup)
	})

	return r
}

// routePattern usa el patrón de chi como label de métricas para mantener
// la cardinalidad acotada.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
