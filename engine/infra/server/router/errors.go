package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/listview"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/pkg/logger"
)

// Common sentinel errors
var (
	ErrInternal        = errors.New("internal server error")
	ErrRouteNotDefined = errors.New("route not defined")
)

// Error codes
const (
	ErrInternalCode           = "INTERNAL_ERROR"
	ErrBadRequestCode         = "BAD_REQUEST"
	ErrNotFoundCode           = "NOT_FOUND"
	ErrConflictCode           = "CONFLICT"
	ErrBadGatewayCode         = "BAD_GATEWAY"
	ErrServiceUnavailableCode = "SERVICE_UNAVAILABLE"
	ErrTooManyRequestsCode    = "TOO_MANY_REQUESTS"
)

// Error represents errors that can occur during server operations
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
	Details string `json:"details"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewServerError creates a new ServerError
func NewServerError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WrapServerError wraps an existing error with a server error
func WrapServerError(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error ErrorInfo `json:"error"`
}

// Classify maps an error from the list engines to its status and code.
func Classify(err error) (int, string) {
	var srvErr *Error
	switch {
	case errors.As(err, &srvErr):
		return getStatusCode(srvErr.Code), srvErr.Code
	case errors.Is(err, query.ErrInvalidArgument),
		errors.Is(err, collection.ErrInvalidRecord),
		errors.Is(err, collection.ErrImmutableID),
		errors.Is(err, catalog.ErrInvalidTheme):
		return http.StatusBadRequest, ErrBadRequestCode
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, catalog.ErrUnknownKind):
		return http.StatusNotFound, ErrNotFoundCode
	case errors.Is(err, collection.ErrDuplicateID):
		return http.StatusConflict, ErrConflictCode
	case errors.Is(err, remote.ErrFetch):
		return http.StatusBadGateway, ErrBadGatewayCode
	case errors.Is(err, listview.ErrUnmounted):
		return http.StatusServiceUnavailable, ErrServiceUnavailableCode
	default:
		return http.StatusInternalServerError, ErrInternalCode
	}
}

// GetErrorInfo extracts error information for the standardized response.
// Internal failures hide their cause from the client.
func GetErrorInfo(err error) (int, ErrorInfo) {
	status, code := Classify(err)
	var srvErr *Error
	if errors.As(err, &srvErr) {
		info := ErrorInfo{Code: code, Message: srvErr.Message, Details: srvErr.Details}
		if info.Details == "" && srvErr.Err != nil && status < http.StatusInternalServerError {
			info.Details = srvErr.Err.Error()
		}
		return status, info
	}
	if status == http.StatusInternalServerError {
		return status, ErrorInfo{Code: code, Message: ErrInternal.Error()}
	}
	return status, ErrorInfo{Code: code, Message: err.Error()}
}

// RespondWithError writes the error body and aborts the request.
func RespondWithError(c *gin.Context, err error) {
	status, info := GetErrorInfo(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error("Request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status_code", status,
			"error", err,
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, ErrorResponse{Error: info})
}

// getStatusCode returns the appropriate HTTP status code for an error code
func getStatusCode(code string) int {
	switch code {
	case ErrBadRequestCode:
		return http.StatusBadRequest
	case ErrNotFoundCode:
		return http.StatusNotFound
	case ErrConflictCode:
		return http.StatusConflict
	case ErrBadGatewayCode:
		return http.StatusBadGateway
	case ErrServiceUnavailableCode:
		return http.StatusServiceUnavailable
	case ErrTooManyRequestsCode:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
