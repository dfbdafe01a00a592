package contract

import (
	"encoding/json"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type ErrorCode string

const (
	ErrorCodeResourceDoesNotExist  ErrorCode = "RESOURCE_DOES_NOT_EXIST"
	ErrorCodeResourceConflict      ErrorCode = "RESOURCE_CONFLICT"
	ErrorCodeInvalidParameterValue ErrorCode = "INVALID_PARAMETER_VALUE"
	ErrorCodeBadRequest            ErrorCode = "BAD_REQUEST"
	ErrorCodeInternalError         ErrorCode = "INTERNAL_ERROR"
	ErrorCodeEndpointNotFound      ErrorCode = "ENDPOINT_NOT_FOUND"
)

// Error is the typed error every service method returns alongside its
// result. It carries the taxonomy code and maps onto an HTTP status for
// the server's error handler.
type Error struct {
	Code    ErrorCode `json:"error_code"`
	Message string    `json:"message"`
	inner   error
}

func NewError(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewErrorWith(code ErrorCode, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		inner:   err,
	}
}

func NewNotFound(format string, args ...any) *Error {
	return NewError(ErrorCodeResourceDoesNotExist, format, args...)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.inner != nil {
		msg = fmt.Sprintf("%s: %s", msg, e.inner)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.inner
}

func (e *Error) StatusCode() int {
	switch e.Code {
	case ErrorCodeResourceDoesNotExist, ErrorCodeEndpointNotFound:
		return fiber.StatusNotFound
	case ErrorCodeResourceConflict:
		return fiber.StatusConflict
	case ErrorCodeInvalidParameterValue, ErrorCodeBadRequest:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code    ErrorCode `json:"error_code"`
		Message string    `json:"message"`
	}{
		Code:    e.Code,
		Message: e.Message,
	})
}
