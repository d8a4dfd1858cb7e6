package op

import (
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/exp/slog"

	httphelper "github.com/zitadel/ciba/pkg/http"
	"github.com/zitadel/ciba/pkg/oidc"
)

// StatusError wraps an error with an explicit HTTP status code.
type StatusError struct {
	parent     error
	statusCode int
}

func NewStatusError(parent error, statusCode int) StatusError {
	return StatusError{
		parent:     parent,
		statusCode: statusCode,
	}
}

func (e StatusError) Error() string {
	return fmt.Sprintf("%s: %s", http.StatusText(e.statusCode), e.parent.Error())
}

func (e StatusError) Unwrap() error {
	return e.parent
}

func (e StatusError) Is(err error) bool {
	var target StatusError
	if !errors.As(err, &target) {
		return false
	}
	return errors.Is(e.parent, target.parent) &&
		e.statusCode == target.statusCode
}

// WriteError writes err as an OAuth error response.
// Errors other than *oidc.Error are rendered as server_error.
// The status code is taken from a StatusError or derived from the error type.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	statusCode := 0
	var statusError StatusError
	if errors.As(err, &statusError) {
		statusCode = statusError.statusCode
	}
	e := oidc.DefaultToServerError(err, "internal server error")
	if statusCode == 0 {
		statusCode = errorStatusCode(e)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Log(r.Context(), e.LogLevel(), "request error", "oidc_error", e, "status_code", statusCode)
	httphelper.MarshalJSONWithStatus(w, e, statusCode)
}

func errorStatusCode(e *oidc.Error) int {
	switch e.ErrorType {
	case oidc.InvalidClient, oidc.UnauthorizedEndUserDevice:
		return http.StatusUnauthorized
	case oidc.ServerError, oidc.TransactionFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
