package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	identitydomain "github.com/groundstone/terravest/internal/identity/domain"
	investmentdomain "github.com/groundstone/terravest/internal/investment/domain"
	portfoliodomain "github.com/groundstone/terravest/internal/portfolio/domain"
	projectdomain "github.com/groundstone/terravest/internal/project/domain"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError describes a single invalid request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors aggregates request validation failures.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v *ValidationErrors) Error() string {
	return "validation_failed"
}

func (v *ValidationErrors) Add(field, message string) {
	v.Errors = append(v.Errors, ValidationError{Field: field, Message: message})
}

func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

type errorBody struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

// ErrorHandlingMiddleware converts errors attached to the gin context into
// a consistent JSON error envelope.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, body := mapError(err)
		c.JSON(status, body)
	}
}

func mapError(err error) (int, errorBody) {
	var verr *ValidationErrors
	if errors.As(err, &verr) {
		return http.StatusBadRequest, errorBody{
			Type:    "validation_failed",
			Message: "request validation failed",
			Errors:  verr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorBody{
			Type:    "unauthorized",
			Message: "missing or invalid credentials",
		}
	case errors.Is(err, portfoliodomain.ErrPermissionDenied):
		return http.StatusForbidden, errorBody{
			Type:    "permission_denied",
			Message: "role is not allowed to access this resource",
		}
	case errors.Is(err, identitydomain.ErrUserNotFound):
		return http.StatusNotFound, errorBody{
			Type:    "user_not_found",
			Message: "user does not exist",
		}
	case errors.Is(err, identitydomain.ErrWalletMissing):
		return http.StatusBadRequest, errorBody{
			Type:    "wallet_missing",
			Message: "user has no linked wallet",
		}
	case errors.Is(err, projectdomain.ErrNotFound):
		return http.StatusNotFound, errorBody{
			Type:    "project_not_found",
			Message: "project does not exist",
		}
	case errors.Is(err, identitydomain.ErrInvalidID), errors.Is(err, projectdomain.ErrInvalidID):
		return http.StatusBadRequest, errorBody{
			Type:    "invalid_id",
			Message: "identifier is malformed",
		}
	case errors.Is(err, investmentdomain.ErrInvalidAmount):
		return http.StatusBadRequest, errorBody{
			Type:    "invalid_amount",
			Message: "amount must be a positive number",
		}
	case errors.Is(err, investmentdomain.ErrSettlementFailed):
		return http.StatusBadRequest, errorBody{
			Type:    "settlement_failed",
			Message: "on-chain settlement was rejected",
		}
	case errors.Is(err, investmentdomain.ErrLedgerWriteFailed):
		// The settlement succeeded on chain. The posting reference makes a
		// retry of the ledger write idempotent, so surface a distinct type.
		return http.StatusInternalServerError, errorBody{
			Type:    "ledger_write_failed",
			Message: "purchase settled on chain but recording failed; retry is safe",
		}
	default:
		return http.StatusInternalServerError, errorBody{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger with a stable error taxonomy.
func classifyErrorForLog(err error) (string, string) {
	status, body := mapError(err)
	switch {
	case status >= 500:
		return "server_error", body.Type
	case status >= 400:
		return "client_error", body.Type
	default:
		return "", body.Type
	}
}
