package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/greencart/storefront/core"
)

// APIError is the structured error returned for every non-2xx response.
// Payload carries the parsed JSON error body when the backend sent one,
// else the raw response text. The gateway never swallows a failed call;
// callers decide recovery.
type APIError struct {
	Status  int
	Payload interface{}
}

// Error returns the string representation of the error
func (e *APIError) Error() string {
	return fmt.Sprintf("API request failed with %d %s", e.Status, http.StatusText(e.Status))
}

// Unwrap maps the HTTP status onto the SDK's sentinel errors so call
// sites can branch with errors.Is instead of status comparisons.
func (e *APIError) Unwrap() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return core.ErrUnauthorized
	case e.Status == http.StatusForbidden:
		return core.ErrForbidden
	case e.Status == http.StatusNotFound:
		return core.ErrNotFound
	case e.Status == http.StatusConflict:
		return core.ErrConflict
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return core.ErrValidation
	case e.Status >= 500:
		return core.ErrRequestFailed
	default:
		return core.ErrRequestFailed
	}
}

// Detail extracts the backend's human-readable detail message, the way
// FastAPI-style backends report it: {"detail": "..."} or
// {"detail": ["...", ...]}. Returns "" when no detail is present.
func (e *APIError) Detail() string {
	switch payload := e.Payload.(type) {
	case string:
		return payload
	case map[string]interface{}:
		switch detail := payload["detail"].(type) {
		case string:
			return detail
		case []interface{}:
			if len(detail) > 0 {
				return fmt.Sprintf("%v", detail[0])
			}
		}
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or 0 when err does
// not wrap an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// DetailOf returns the backend detail message carried by err, if any.
func DetailOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail()
	}
	return ""
}
