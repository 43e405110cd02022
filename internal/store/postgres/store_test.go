package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/congo-pay/agentcash/internal/apperr"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\tmp`, escapeLike(`c:\tmp`))
	assert.Equal(t, "plain@example.com", escapeLike("plain@example.com"))
}

func TestStorageErr(t *testing.T) {
	serialization := fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})
	deadlock := &pgconn.PgError{Code: "40P01"}

	assert.ErrorIs(t, storageErr(serialization), apperr.ErrConflict)
	assert.ErrorIs(t, storageErr(deadlock), apperr.ErrConflict)
	assert.Same(t, apperr.ErrBalanceOverflow, storageErr(&pgconn.PgError{Code: "22003"}))
	assert.ErrorIs(t, storageErr(errors.New("connection reset")), apperr.ErrTransient)
	assert.Same(t, apperr.ErrInsufficientFunds, storageErr(apperr.ErrInsufficientFunds))
	assert.NoError(t, storageErr(nil))
}

func TestParseID(t *testing.T) {
	_, ok := parseID("5f0c6c8e-8d8e-4b7a-9a51-6a0b7c1d2e3f")
	assert.True(t, ok)
	_, ok = parseID("missing")
	assert.False(t, ok)
}
