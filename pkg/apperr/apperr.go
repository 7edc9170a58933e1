// Package apperr carries an HTTP status and stable code with domain errors so
// handlers can translate them without knowing every sentinel.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrBadRequest      = errors.New("bad request")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrPaymentRequired = errors.New("payment required")
	ErrUnprocessable   = errors.New("unprocessable")
)

type AppError struct {
	Err        error  `json:"-"`
	Message    string `json:"message"`
	Code       string `json:"code"`
	HTTPStatus int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Withf returns a copy with a new message that still matches e under
// errors.Is.
func (e *AppError) Withf(format string, args ...any) *AppError {
	return &AppError{Err: e, Message: fmt.Sprintf(format, args...), Code: e.Code, HTTPStatus: e.HTTPStatus, Details: e.Details}
}

// WithDetails returns a copy carrying details that still matches e under
// errors.Is.
func (e *AppError) WithDetails(details any) *AppError {
	return &AppError{Err: e, Message: e.Message, Code: e.Code, HTTPStatus: e.HTTPStatus, Details: details}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Err:        ErrNotFound,
		Message:    resource + " not found",
		Code:       "NOT_FOUND",
		HTTPStatus: http.StatusNotFound,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{Err: ErrBadRequest, Message: message, Code: "BAD_REQUEST", HTTPStatus: http.StatusBadRequest}
}

func Validation(message string, details map[string]string) *AppError {
	e := &AppError{Err: ErrValidation, Message: message, Code: "VALIDATION_ERROR", HTTPStatus: http.StatusBadRequest}
	if len(details) > 0 {
		e.Details = details
	}
	return e
}

func Conflict(code, message string) *AppError {
	return &AppError{Err: ErrConflict, Message: message, Code: code, HTTPStatus: http.StatusConflict}
}

func Forbidden(message string) *AppError {
	return &AppError{Err: ErrForbidden, Message: message, Code: "FORBIDDEN", HTTPStatus: http.StatusForbidden}
}

func PaymentRequired(code, message string) *AppError {
	return &AppError{Err: ErrPaymentRequired, Message: message, Code: code, HTTPStatus: http.StatusPaymentRequired}
}

func Unprocessable(code, message string) *AppError {
	return &AppError{Err: ErrUnprocessable, Message: message, Code: code, HTTPStatus: http.StatusUnprocessableEntity}
}

// ToHTTP converts a service error into an echo.HTTPError whose JSON body has
// a message field. Unknown errors become an opaque 500 with the cause kept
// as the internal error for logging.
func ToHTTP(err error) error {
	if err == nil {
		return nil
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ae *AppError
	if errors.As(err, &ae) {
		body := map[string]any{"message": ae.Message, "code": ae.Code}
		if ae.Details != nil {
			body["details"] = ae.Details
		}
		return echo.NewHTTPError(ae.HTTPStatus, body).SetInternal(err)
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
}
