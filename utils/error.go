package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error codes for the engine's failure taxonomy. Races and expected
// business outcomes (precondition failures, exhausted searches) are normal
// control flow; only infrastructure failures are retried or logged as errors.
const (
	CodeValidation           = "validationError"
	CodePreconditionFailed   = "preconditionFailed"
	CodeNotFound             = "notFound"
	CodeExpired              = "expired"
	CodeMismatch             = "mismatch"
	CodeLockedOut            = "lockedOut"
	CodeNoProvidersAvailable = "noProvidersAvailable"
	CodeUpstreamUnavailable  = "upstreamUnavailable"
)

// ServiceError is a typed error carried across service boundaries.
type ServiceError struct {
	Code    string
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewServiceError(code, msg string) *ServiceError {
	return &ServiceError{Code: code, Message: msg}
}

func NewValidationError(msg string) *ServiceError {
	return NewServiceError(CodeValidation, msg)
}

func NewPreconditionFailed(msg string) *ServiceError {
	return NewServiceError(CodePreconditionFailed, msg)
}

func NewNotFound(msg string) *ServiceError {
	return NewServiceError(CodeNotFound, msg)
}

// ErrorCode extracts the taxonomy code from an error chain, or "" if the
// error is not a ServiceError.
func ErrorCode(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// HTTPStatus maps a taxonomy code to the response status.
func HTTPStatus(code string) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodePreconditionFailed:
		return http.StatusConflict
	case CodeNotFound:
		return http.StatusNotFound
	case CodeExpired:
		return http.StatusGone
	case CodeMismatch:
		return http.StatusUnprocessableEntity
	case CodeLockedOut:
		return http.StatusLocked
	case CodeNoProvidersAvailable:
		return http.StatusConflict
	case CodeUpstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse defines the structure of error responses.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ErrorHandler is a middleware to catch panics and return structured errors.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err))
				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response.
func JSONError(c *gin.Context, status int, message string, details string) {
	GetLogger().Warn(message, zap.String("details", details))
	c.JSON(status, ErrorResponse{Message: message, Details: details})
}

// JSONServiceError maps a service error onto the response envelope. Unknown
// errors surface as a generic retryable message, never a raw internal error.
func JSONServiceError(c *gin.Context, err error) {
	code := ErrorCode(err)
	if code == "" {
		GetLogger().Error("unclassified service error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal Server Error",
			Details: "An unexpected error occurred. Please try again later.",
		})
		return
	}
	var se *ServiceError
	errors.As(err, &se)
	c.JSON(HTTPStatus(code), ErrorResponse{Message: se.Message, Code: code})
}
