// Package apperror classifies failures so that HTTP handlers can map them to
// status codes without inspecting messages.
package apperror

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrSaleReference is returned when a payment record carries no parseable sale reference.
var ErrSaleReference = errors.New("sale reference not found")

// ValidationError is bad client input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthenticityError is a missing or mismatched webhook signature.
type AuthenticityError struct {
	Reason string
}

func (e *AuthenticityError) Error() string {
	return "webhook signature rejected: " + e.Reason
}

func Authenticity(reason string) error {
	return &AuthenticityError{Reason: reason}
}

// UpstreamError is a payment provider failure. Status and Body are set when
// the provider answered with a non-success status.
type UpstreamError struct {
	Op          string
	Status      int
	Body        []byte
	ContentType string
	Err         error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: provider responded %d", e.Op, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Rejected reports whether the provider answered with an error status, as
// opposed to the call failing in transport.
func (e *UpstreamError) Rejected() bool { return e.Status != 0 }

// DownstreamError is a datastore write failure.
type DownstreamError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *DownstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: datastore responded %d: %s", e.Op, e.Status, e.Body)
}

func (e *DownstreamError) Unwrap() error { return e.Err }

// InternalError is any unexpected fault. Its detail is for logs only.
type InternalError struct {
	Op  string
	Err error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

func Internal(op string, err error) error {
	return &InternalError{Op: op, Err: err}
}

// HTTPStatus maps err to the status returned to the client.
func HTTPStatus(err error) int {
	var (
		validation   *ValidationError
		authenticity *AuthenticityError
		upstream     *UpstreamError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &authenticity):
		return http.StatusUnauthorized
	case errors.As(err, &upstream) && upstream.Rejected():
		return upstream.Status
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to show to clients.
func PublicMessage(err error, fallback string) string {
	var (
		validation   *ValidationError
		authenticity *AuthenticityError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Error()
	case errors.As(err, &authenticity):
		return "invalid signature"
	default:
		return fallback
	}
}
