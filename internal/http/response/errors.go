package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/stayline-hotel/internal/domain"
	"github.com/diagnosis/stayline-hotel/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Common error codes
const (
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeNotFound            = "NOT_FOUND"
	CodeRoomUnavailable     = "ROOM_UNAVAILABLE"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeTooEarly            = "TOO_EARLY"
	CodeMalformedCredential = "MALFORMED_CREDENTIAL"
	CodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	CodeInternalError       = "INTERNAL_ERROR"
)

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteValidationErrors writes a 422 carrying the per-field messages.
func WriteValidationErrors(w http.ResponseWriter, errs domain.ValidationErrors) {
	writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
		Error:  "validation failed",
		Code:   CodeInvalidInput,
		Fields: errs,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

// FromDomain maps service-layer errors onto HTTP statuses. Anything it does
// not recognize becomes a 500 with the detail kept out of the body.
func FromDomain(w http.ResponseWriter, err error) {
	var verrs domain.ValidationErrors
	var terr *domain.TransitionError

	switch {
	case errors.As(err, &verrs):
		WriteValidationErrors(w, verrs)
	case errors.As(err, &terr):
		WriteError(w, http.StatusConflict, terr.Error(), CodeInvalidTransition)
	case errors.Is(err, domain.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, err.Error(), CodeInvalidTransition)
	case errors.Is(err, domain.ErrTooEarly):
		WriteError(w, http.StatusConflict, err.Error(), CodeTooEarly)
	case errors.Is(err, domain.ErrRoomUnavailable):
		WriteError(w, http.StatusConflict, "room is not available for the requested dates", CodeRoomUnavailable)
	case errors.Is(err, domain.ErrMalformedCredential):
		WriteError(w, http.StatusUnprocessableEntity, "credential is not recognized", CodeMalformedCredential)
	case errors.Is(err, domain.ErrReservationNotFound),
		errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrGuestNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument):
		BadRequest(w, err.Error())
	default:
		logger.Error("unhandled service error", "error", err)
		InternalError(w, "internal server error")
	}
}
