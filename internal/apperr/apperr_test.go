package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpecificErrorsMatchTheirKind(t *testing.T) {
	wrapped := fmt.Errorf("send money: %w", ErrBelowMinimum)

	assert.ErrorIs(t, wrapped, ErrBelowMinimum)
	assert.ErrorIs(t, wrapped, ErrValidation)
	assert.NotErrorIs(t, wrapped, ErrNotFound)
	assert.Equal(t, ErrValidation, KindOf(wrapped))
	assert.Equal(t, "below_minimum", Code(wrapped))
}

func TestTransientKeepsCauseHidden(t *testing.T) {
	err := Transient(context.DeadlineExceeded)

	assert.ErrorIs(t, err, ErrTransient)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, "storage temporarily unavailable", Message(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrMissingToken, http.StatusUnauthorized},
		{ErrInvalidPIN, http.StatusUnauthorized},
		{ErrAccountNotFound, http.StatusNotFound},
		{ErrSelfTransfer, http.StatusBadRequest},
		{ErrInsufficientFunds, http.StatusBadRequest},
		{ErrDuplicateIdentity, http.StatusConflict},
		{Conflict(errors.New("write conflict")), http.StatusConflict},
		{Transient(errors.New("dial tcp")), http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
	assert.Equal(t, "internal error", Message(errors.New("boom")))
}
