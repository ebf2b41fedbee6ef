package shell

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
)

// APIError implements huma.StatusError for domain errors, giving every
// failure the same {code, message, details} body.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// apiError converts a service failure into an APIError. The message is the
// one shown to people, so internal causes never leak.
func apiError(err error) error {
	if err == nil {
		return nil
	}
	var se huma.StatusError
	if errors.As(err, &se) {
		return se
	}
	code := domainerrors.CodeOf(err)
	out := &APIError{
		status:  code.HTTPStatus(),
		Code:    string(code),
		Message: domainerrors.UserMessage(err),
	}
	var de *domainerrors.Error
	if errors.As(err, &de) {
		out.Details = de.Details
	}
	if out.Message == "" {
		out.Message = http.StatusText(out.status)
	}
	return out
}

// RegisterErrorHandler makes huma's own errors (bad input, unknown routes)
// use the APIError shape. Call it after creating the huma.API and before
// registering routes.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			var de *domainerrors.Error
			if errors.As(err, &de) {
				return apiError(de).(*APIError)
			}
		}

		e := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		if len(errs) > 0 {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			e.Details = details
		}
		return e
	}
}

// statusToCode maps HTTP status codes to domain error codes.
func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusUnauthorized:
		return string(domainerrors.CodeUnauthorized)
	case http.StatusForbidden:
		return string(domainerrors.CodeForbidden)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeTransient)
	default:
		return string(domainerrors.CodeInternal)
	}
}
