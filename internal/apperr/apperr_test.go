package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeOf(t *testing.T) {
	err := New(CodeInsufficientDoses, "no doses left")
	assert.Equal(t, CodeInsufficientDoses, CodeOf(err))

	wrapped := fmt.Errorf("reserving: %w", err)
	assert.Equal(t, CodeInsufficientDoses, CodeOf(wrapped))

	assert.Equal(t, CodeStorage, CodeOf(errors.New("plain")))
	assert.Equal(t, Code(""), CodeOf(nil))
}

func TestWrapUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(CodeStorage, "list vaccines", cause)

	require.ErrorIs(t, err, cause)
	assert.Equal(t, "list vaccines: connection reset", err.Error())
	assert.True(t, HasCode(err, CodeStorage))
}

func TestFromPG(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want Code
	}{
		{"no rows", pgx.ErrNoRows, CodeNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, CodeAlreadyExists},
		{"fk violation", &pgconn.PgError{Code: "23503"}, CodeNotFound},
		{"check violation", &pgconn.PgError{Code: "23514"}, CodeConflict},
		{"anything else", errors.New("timeout"), CodeStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromPG("op", tt.in).Code())
		})
	}
}

func TestFromPGNil(t *testing.T) {
	assert.Nil(t, FromPG("op", nil))
}
