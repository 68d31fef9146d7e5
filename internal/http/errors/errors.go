// Package errors define la estructura estándar de errores HTTP del API.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// AppError define la estructura estándar para errores de la aplicación.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // causa original, solo para logs
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail agrega detalle adicional. Devuelve una COPIA para no mutar
// las variables globales base.
func (e *AppError) WithDetail(detail string) *AppError {
	newErr := *e
	newErr.Detail = detail
	return &newErr
}

// WithCause agrega el error original (causa). Devuelve una COPIA.
func (e *AppError) WithCause(err error) *AppError {
	newErr := *e
	newErr.Err = err
	return &newErr
}

// FromError convierte un error genérico en AppError. Si no lo es,
// devuelve un error interno genérico conservando la causa.
func FromError(err error) *AppError {
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	return ErrInternal.WithCause(err)
}

// redactDetail en producción: el Detail de errores upstream puede
// arrastrar cuerpos crudos del provider y no debe llegar al cliente.
var redactDetail bool

// SetProdMode activa la redacción de detalles para ambientes productivos.
func SetProdMode(prod bool) {
	redactDetail = prod
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta HTTP correspondiente al error.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	resp := errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	}
	if redactDetail && appErr.HTTPStatus >= http.StatusInternalServerError {
		resp.Detail = ""
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// Errores predefinidos.
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request has invalid syntax or missing parameters.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Required fields are missing from the request.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnsupportedProvider = &AppError{
		Code:       "UNSUPPORTED_PROVIDER",
		Message:    "The requested social provider is not supported.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrInvalidState = &AppError{
		Code:       "INVALID_STATE",
		Message:    "The state parameter is missing, expired or already used.",
		HTTPStatus: http.StatusBadRequest,
	}
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication is required to access this resource.",
		HTTPStatus: http.StatusUnauthorized,
	}
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "You do not have permission to access this resource.",
		HTTPStatus: http.StatusForbidden,
	}
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}
	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The HTTP method is not allowed for this resource.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}
	ErrLinkConflict = &AppError{
		Code:       "SOCIAL_LINK_CONFLICT",
		Message:    "This social account cannot be linked to the requested account.",
		HTTPStatus: http.StatusConflict,
	}
	ErrLastFactor = &AppError{
		Code:       "LAST_AUTH_FACTOR",
		Message:    "Cannot unlink: the account would be left without any way to sign in.",
		HTTPStatus: http.StatusConflict,
	}
	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests. Please slow down and try again.",
		HTTPStatus: http.StatusTooManyRequests,
	}
	ErrProviderExchange = &AppError{
		Code:       "PROVIDER_EXCHANGE_FAILED",
		Message:    "The social provider rejected the authorization exchange.",
		HTTPStatus: http.StatusBadGateway,
	}
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred. Please try again later.",
		HTTPStatus: http.StatusInternalServerError,
	}
)
