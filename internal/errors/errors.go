// Package errors maps domain failures onto structured API error responses.
package errors

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"stackdid/internal/panelio"
	"stackdid/internal/stacking"
)

// APIError represents a structured API error response.
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// New creates a new APIError with the given parameters.
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details.
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidRequest   = New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format")
	ErrValidationFailed = New(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed")
	ErrNotFound         = New(http.StatusNotFound, "NOT_FOUND", "Resource not found")
	ErrInternalServer   = New(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error")
)

// DegenerateWeightDetails identifies the cell that triggered a degenerate
// weight failure.
type DegenerateWeightDetails struct {
	SubExperiment int    `json:"sub_exp"`
	EventTime     int    `json:"event_time"`
	Reason        string `json:"reason"`
}

// SchemaDetails identifies an unresolved field selector.
type SchemaDetails struct {
	Field    string   `json:"field"`
	Selector string   `json:"selector"`
	Columns  []string `json:"columns"`
}

// FromDomain maps stacking and panel-reading failures to typed API errors so
// the caller can see which stage and which key failed. Unrecognized errors
// map to a generic internal error.
func FromDomain(err error) *APIError {
	var invalidWindow *stacking.InvalidWindowError
	if errors.As(err, &invalidWindow) {
		return NewWithDetails(http.StatusUnprocessableEntity, "INVALID_WINDOW", invalidWindow.Error(), invalidWindow.Window)
	}

	var noEvents *stacking.NoEventsError
	if errors.As(err, &noEvents) {
		return New(http.StatusUnprocessableEntity, "NO_EVENTS", noEvents.Error())
	}

	var empty *stacking.EmptyResultError
	if errors.As(err, &empty) {
		return NewWithDetails(http.StatusUnprocessableEntity, "EMPTY_RESULT", empty.Error(), empty.Focal)
	}

	var degenerate *stacking.DegenerateWeightError
	if errors.As(err, &degenerate) {
		return NewWithDetails(http.StatusUnprocessableEntity, "DEGENERATE_WEIGHT", degenerate.Error(), DegenerateWeightDetails{
			SubExperiment: degenerate.SubExperiment,
			EventTime:     degenerate.EventTime,
			Reason:        degenerate.Reason,
		})
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) {
		details := make([]string, 0, len(fieldErrors))
		for _, fe := range fieldErrors {
			details = append(details, fe.Error())
		}
		return NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED", "Request validation failed", details)
	}

	var schema *panelio.SchemaError
	if errors.As(err, &schema) {
		return NewWithDetails(http.StatusBadRequest, "SCHEMA_ERROR", schema.Error(), SchemaDetails{
			Field:    schema.Field,
			Selector: schema.Selector,
			Columns:  schema.Columns,
		})
	}

	return NewWithDetails(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "Internal server error", err.Error())
}

// ErrorResponse represents a standard error response envelope.
type ErrorResponse struct {
	Success bool      `json:"success"`
	Error   *APIError `json:"error"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(err *APIError) *ErrorResponse {
	return &ErrorResponse{
		Success: false,
		Error:   err,
	}
}

// Render implements the render.Renderer interface.
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return e.Error.Render(w, r)
}
