package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker/v2"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"
)

// ServerError is a 5xx answer from a downstream service.
type ServerError struct {
	Service string
	Status  int
	Body    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s server error %d: %s", e.Service, e.Status, e.Body)
}

// downstreamError mirrors the httputil.ErrorResponse envelope.
type downstreamError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads a non-2xx response and translates it into an
// AppError. Structured bodies keep their code and message; anything else
// is reported with the raw body. The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	code, message := "", string(body)
	var downstream downstreamError
	if json.Unmarshal(body, &downstream) == nil && downstream.Error != nil {
		code, message = downstream.Error.Code, downstream.Error.Message
	}
	return mapDownstreamError(resp.StatusCode, code, message, serviceName)
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualified := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{Code: "NOT_FOUND", Message: qualified, Status: status, Err: apperrors.ErrNotFound}
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualified)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualified)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualified)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualified)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Unprocessable(qualified)
	case status >= 500:
		return apperrors.ServiceUnavailable(qualified)
	default:
		if code == "" {
			code = http.StatusText(status)
		}
		return &apperrors.AppError{Code: code, Message: qualified, Status: status}
	}
}

// Unavailable converts transport failures, open breakers and 5xx answers
// into a 503 AppError so callers can surface them uniformly. Other errors
// are returned unchanged.
func Unavailable(err error, serviceName string) error {
	if err == nil {
		return nil
	}
	var serverErr *ServerError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return wrapUnavailable(serviceName+" is temporarily unavailable", err)
	case errors.As(err, &serverErr):
		return wrapUnavailable(fmt.Sprintf("%s returned status %d", serviceName, serverErr.Status), err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return wrapUnavailable(serviceName+" request failed", err)
}

func wrapUnavailable(message string, cause error) error {
	e := apperrors.ServiceUnavailable(message)
	e.Err = fmt.Errorf("%w: %w", apperrors.ErrServiceUnavail, cause)
	return e
}

