package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"choretracker/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeForbidden      = "forbidden"
	ErrCodeNotFound       = "not_found"
	ErrCodeConflict       = "conflict"
	ErrCodeExpired        = "expired"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeDeliveryFailed = "delivery_failed"
	ErrCodeInternalError  = "internal_error"
)

// APIError is the error object in the standardized API response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the standardized envelope for all API responses.
// On success: Data is set, Error is nil. On error: Error is set and Data is usually nil.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteJSONSuccess sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with the given data and error set to nil.
func WriteJSONSuccess(w http.ResponseWriter, statusCode int, data any) {
	writeJSON(w, statusCode, APIResponse{Data: data})
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, APIResponse{Error: &APIError{Code: code, Message: message}})
}

// errorMapping orders the checks; more specific sentinels come first.
var errorMapping = []struct {
	target error
	status int
	code   string
}{
	{domain.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest},
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrInvalidToken, http.StatusUnauthorized, ErrCodeUnauthorized},
	{domain.ErrNoFamily, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrAlreadyInFamily, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrForbidden, http.StatusForbidden, ErrCodeForbidden},
	{domain.ErrUserNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrNotFound, http.StatusNotFound, ErrCodeNotFound},
	{domain.ErrDuplicateEmail, http.StatusConflict, ErrCodeConflict},
	{domain.ErrAlreadyMember, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvitationNotPending, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvitationConflict, http.StatusConflict, ErrCodeConflict},
	{domain.ErrInvitationExpired, http.StatusGone, ErrCodeExpired},
	{domain.ErrDeliveryFailed, http.StatusBadGateway, ErrCodeDeliveryFailed},
}

// StatusFor returns the HTTP status and error code for a service error.
// Unknown errors map to 500 internal_error.
func StatusFor(err error) (int, string) {
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

func messageFor(err error) string {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return verr.Error()
	}
	for _, m := range errorMapping {
		if errors.Is(err, m.target) {
			return m.target.Error()
		}
	}
	return "internal server error"
}

// WriteServiceError writes the envelope for an error returned by a service. Internal
// errors are logged and answered with a generic message. data, if not nil, is included
// alongside the error, e.g. an invitation that was saved but not delivered.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, data any) {
	status, code := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed", "path", RouteLabel(r), "method", r.Method, "err", err)
	} else if status == http.StatusBadGateway {
		logger.WarnContext(r.Context(), "request partially failed", "path", RouteLabel(r), "method", r.Method, "err", err)
	}
	writeJSON(w, status, APIResponse{Data: data, Error: &APIError{Code: code, Message: messageFor(err)}})
}

// RouteLabel returns the ServeMux pattern that matched r, or "unmatched". Logs and metrics
// use it instead of r.URL.Path, which can carry an invitation token.
func RouteLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}
