package apperrors

import "net/http"

// HTTPStatus maps an error category to the HTTP status code reported to the
// caller. Unrecognized errors are treated as internal.
func HTTPStatus(err error) int {
	switch {
	case IsValidation(err) || IsInvalidConfig(err):
		return http.StatusBadRequest
	case IsForbidden(err):
		return http.StatusForbidden
	case IsNotFound(err):
		return http.StatusNotFound
	case IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
