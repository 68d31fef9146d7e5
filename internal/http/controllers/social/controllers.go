// Package social contiene los controllers HTTP del flujo de social login.
package social

import (
	"net"
	"net/http"
	"strings"

	"github.com/santhoshmp/LearningPlanner-sub010/internal/jwt"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/pkce"
	"github.com/santhoshmp/LearningPlanner-sub010/internal/oauth/providers"
	svc "github.com/santhoshmp/LearningPlanner-sub010/internal/http/services/social"
)

// Deps agrupa las dependencias de los controllers sociales.
type Deps struct {
	Start     svc.StartService
	Reconcile svc.ReconcileService
	Lifecycle svc.LifecycleService
	Registry  *providers.Registry
	PKCE      *pkce.Store
	Issuer    *jwt.Issuer
}

// Controllers agrupa los controllers del flujo social.
type Controllers struct {
	Start    *StartController
	Callback *CallbackController
	Link     *LinkController
	Unlink   *UnlinkController
}

// New arma los controllers con sus dependencias.
func New(d Deps) *Controllers {
	exchanger := &codeExchanger{registry: d.Registry, pkce: d.PKCE}
	return &Controllers{
		Start:    &StartController{service: d.Start},
		Callback: &CallbackController{reconcile: d.Reconcile, exchanger: exchanger, issuer: d.Issuer},
		Link:     &LinkController{service: d.Reconcile, exchanger: exchanger},
		Unlink:   &UnlinkController{service: d.Lifecycle},
	}
}

// clientIP extrae la IP del cliente, respetando X-Forwarded-For.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.SplitN(xff, ",", 2)[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
