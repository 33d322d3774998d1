package apperror

import (
	"context"
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "Nil", err: nil, expected: http.StatusOK},
		{name: "Validation", err: Validation("total", "must be positive"), expected: http.StatusBadRequest},
		{name: "WrappedValidation", err: errors.Wrap(Validation("sale_id", "required"), "charge"), expected: http.StatusBadRequest},
		{name: "Authenticity", err: Authenticity("missing header"), expected: http.StatusUnauthorized},
		{
			name:     "UpstreamRejected",
			err:      &UpstreamError{Op: "create payment", Status: http.StatusUnprocessableEntity},
			expected: http.StatusUnprocessableEntity,
		},
		{
			name:     "UpstreamTransport",
			err:      &UpstreamError{Op: "create payment", Err: context.DeadlineExceeded},
			expected: http.StatusInternalServerError,
		},
		{name: "Downstream", err: &DownstreamError{Op: "update sale", Status: 503}, expected: http.StatusInternalServerError},
		{name: "Internal", err: Internal("decode", errors.New("boom")), expected: http.StatusInternalServerError},
		{name: "Plain", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}

func TestPublicMessage_HidesInternalDetail(t *testing.T) {
	err := Internal("decode provider response", errors.New("unexpected EOF at offset 17"))

	assert.Equal(t, "internal error", PublicMessage(err, "internal error"))
	assert.Equal(t, "total: must be positive", PublicMessage(Validation("total", "must be positive"), "x"))
	assert.Equal(t, "invalid signature", PublicMessage(Authenticity("digest mismatch"), "x"))
}

func TestUpstreamError_Unwrap(t *testing.T) {
	err := errors.Wrap(&UpstreamError{Op: "get payment", Err: context.DeadlineExceeded}, "reconcile")

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
