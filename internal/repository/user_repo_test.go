package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"ikiraha-api/internal/model"
)

func TestMapUniqueViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "email", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, want: model.ErrEmailTaken},
		{name: "phone", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_phone_key"}, want: model.ErrPhoneTaken},
		{name: "wrapped phone", err: fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "users_phone_key"}), want: model.ErrPhoneTaken},
		{name: "other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_uuid_key"}, want: model.ErrDuplicate},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, mapUniqueViolation(tc.err), tc.want)
		})
	}
}

func TestMapUniqueViolationIgnoresOtherErrors(t *testing.T) {
	t.Parallel()

	assert.Nil(t, mapUniqueViolation(errors.New("connection reset")))
	assert.Nil(t, mapUniqueViolation(&pgconn.PgError{Code: "23503", ConstraintName: "users_role_id_fkey"}))
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `50\% off\_now \\ ok`, escapeLike(`50% off_now \ ok`))
	assert.Equal(t, "grill", escapeLike("grill"))
}
