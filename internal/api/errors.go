package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/npezzotti/go-roomboard/internal/session"
	"github.com/npezzotti/go-roomboard/internal/types"
)

type ApiError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Err        error  `json:"-"`
}

func (e *ApiError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *ApiError) Unwrap() error {
	return e.Err
}

func lower(s string) string {
	return strings.ToLower(s)
}

func newApiError(code int, err error) *ApiError {
	return &ApiError{
		StatusCode: code,
		Message:    lower(http.StatusText(code)),
		Err:        err,
	}
}

func NewBadRequestError() *ApiError {
	return newApiError(http.StatusBadRequest, nil)
}

// NewValidationError reports the offending field back to the caller.
func NewValidationError(verr *types.ValidationError) *ApiError {
	return &ApiError{
		StatusCode: http.StatusBadRequest,
		Message:    verr.Error(),
		Err:        verr,
	}
}

func NewNotFoundError() *ApiError {
	return newApiError(http.StatusNotFound, nil)
}

func NewInternalServerError(err error) *ApiError {
	return newApiError(http.StatusInternalServerError, err)
}

func NewUnauthorizedError() *ApiError {
	return newApiError(http.StatusUnauthorized, nil)
}

func NewForbiddenError() *ApiError {
	return newApiError(http.StatusForbidden, nil)
}

func NewServiceUnavailableError(err error) *ApiError {
	return newApiError(http.StatusServiceUnavailable, err)
}

// errorFor maps the error taxonomy onto a response.
func errorFor(err error) *ApiError {
	var (
		apiErr *ApiError
		verr   *types.ValidationError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &verr):
		return NewValidationError(verr)
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrInvalidToken):
		return &ApiError{StatusCode: http.StatusUnauthorized, Message: lower(http.StatusText(http.StatusUnauthorized)), Err: err}
	case errors.Is(err, types.ErrNotFound):
		return &ApiError{StatusCode: http.StatusNotFound, Message: lower(http.StatusText(http.StatusNotFound)), Err: err}
	case errors.Is(err, types.ErrPermissionDenied):
		return &ApiError{StatusCode: http.StatusForbidden, Message: lower(http.StatusText(http.StatusForbidden)), Err: err}
	case errors.Is(err, types.ErrNetworkUnavailable):
		return NewServiceUnavailableError(err)
	default:
		return NewInternalServerError(err)
	}
}
