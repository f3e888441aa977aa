package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/woyofal/internal/audit/domain"
	meterdomain "github.com/smallbiznis/woyofal/internal/meter/domain"
	purchasedomain "github.com/smallbiznis/woyofal/internal/purchase/domain"
	"github.com/smallbiznis/woyofal/internal/receipt"
	tariffdomain "github.com/smallbiznis/woyofal/internal/tariff/domain"
	"gorm.io/gorm"
)

const (
	statutSuccess    = "success"
	statutError      = "error"
	statutSimulation = "simulation"
)

const (
	msgPurchaseOK      = "Achat effectué avec succès"
	msgSimulationOK    = "Simulation d'achat réalisée"
	msgOK              = "Opération réussie"
	msgInvalidJSON     = "Données JSON invalides ou manquantes"
	msgInternal        = "Erreur interne du serveur"
	msgMeterNotFound   = "Le numéro de compteur n'a pas été trouvé"
	msgPurchaseMissing = "Achat introuvable"
	msgInvalidRef      = "Format de référence invalide (attendu: WYFyymmddNNNNNN)"
	msgTierNotFound    = "Tranche tarifaire introuvable"
	msgRateLimited     = "Trop de requêtes pour ce compteur, veuillez réessayer plus tard"
	msgRouteNotFound   = "Endpoint non trouvé"
	msgMethodNotAllow  = "Méthode non autorisée"
	msgInvalidQuery    = "Paramètres de requête invalides"
)

// envelope is the response shape of every endpoint, success or failure.
type envelope struct {
	Data    any    `json:"data"`
	Statut  string `json:"statut"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var (
	ErrNotFound         = errors.New("not_found")
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrInvalidJSON      = errors.New("invalid_json")
	ErrRateLimited      = errors.New("rate_limited")
	ErrMethodNotAllowed = errors.New("method_not_allowed")
)

// requestError carries a caller-facing message for a 400 raised by the
// HTTP layer itself.
type requestError struct {
	message string
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return ErrInvalidRequest }

func invalidRequest(message string) error {
	return &requestError{message: message}
}

func respond(c *gin.Context, status int, statut, message string, data any) {
	c.JSON(status, envelope{
		Data:    data,
		Statut:  statut,
		Code:    status,
		Message: message,
	})
}

func respondOK(c *gin.Context, message string, data any) {
	respond(c, http.StatusOK, statutSuccess, message, data)
}

func respondError(c *gin.Context, err error) {
	status, message := MapError(err)
	c.AbortWithStatusJSON(status, envelope{
		Statut:  statutError,
		Code:    status,
		Message: message,
	})
}

// ErrorHandlingMiddleware renders the last handler error as an envelope when
// the handler did not write a response itself.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}
		respondError(c, lastErr.Err)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// MapError turns an error into a status code and a message safe to show to
// the caller. Anything unexpected becomes a generic 500.
func MapError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, msgInternal
	}

	var validation *purchasedomain.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, validation.Message
	}
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, reqErr.message
	}
	var meterErr *purchasedomain.MeterNotFoundError
	if errors.As(err, &meterErr) {
		message := meterErr.Message
		if message == "" {
			message = msgMeterNotFound
		}
		return http.StatusNotFound, message
	}

	switch {
	case errors.Is(err, ErrInvalidJSON):
		return http.StatusBadRequest, msgInvalidJSON
	case errors.Is(err, purchasedomain.ErrInvalidReference):
		return http.StatusBadRequest, msgInvalidRef
	case errors.Is(err, auditdomain.ErrInvalidStatus),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, tariffdomain.ErrInvalidCode),
		errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, msgInvalidQuery
	case errors.Is(err, purchasedomain.ErrMeterNotFound),
		errors.Is(err, meterdomain.ErrNotFound),
		errors.Is(err, meterdomain.ErrInactive):
		return http.StatusNotFound, msgMeterNotFound
	case errors.Is(err, purchasedomain.ErrNotFound),
		errors.Is(err, receipt.ErrMissingPurchase):
		return http.StatusNotFound, msgPurchaseMissing
	case errors.Is(err, tariffdomain.ErrNotFound):
		return http.StatusNotFound, msgTierNotFound
	case errors.Is(err, ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, msgRouteNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return http.StatusMethodNotAllowed, msgMethodNotAllow
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, msgRateLimited
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// classifyErrorForLog feeds the request logger a low-cardinality error type
// and code.
func classifyErrorForLog(err error) (string, string) {
	status, _ := MapError(err)
	switch {
	case status == http.StatusTooManyRequests:
		return "rate_limited", ErrRateLimited.Error()
	case status >= http.StatusInternalServerError:
		if errors.Is(err, purchasedomain.ErrConsistency) {
			return "consistency_warning", purchasedomain.ErrConsistency.Error()
		}
		return "internal_error", "internal_error"
	case status == http.StatusNotFound:
		return "not_found", errorCode(err)
	default:
		return "validation_error", errorCode(err)
	}
}

var knownCodes = []error{
	purchasedomain.ErrValidation,
	purchasedomain.ErrMeterNotFound,
	purchasedomain.ErrInvalidReference,
	purchasedomain.ErrNotFound,
	tariffdomain.ErrNotFound,
	ErrInvalidJSON,
	ErrInvalidRequest,
	ErrMethodNotAllowed,
	ErrNotFound,
}

func errorCode(err error) string {
	for _, known := range knownCodes {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "unknown"
}
