package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate(nil))
	assert.ErrorIs(t, translate(fmt.Errorf("scan: %w", pgx.ErrNoRows)), model.ErrNotFound)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "appointments_user_slot_uidx"}
	err := translate(unique)
	assert.ErrorIs(t, err, model.ErrDuplicate)
	assert.True(t, IsUniqueViolation(err))

	fk := &pgconn.PgError{Code: "23503", ConstraintName: "appointments_user_id_fkey"}
	assert.ErrorIs(t, translate(fk), model.ErrMissingReference)
	assert.NotErrorIs(t, translate(fk), model.ErrInUse)

	other := errors.New("boom")
	assert.Equal(t, other, translate(other))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(pgx.ErrNoRows))
	assert.True(t, IsNotFound(model.ErrNotFound))
	assert.False(t, IsNotFound(errors.New("x")))
}

func TestTranslateDelete(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "appointments_service_id_fkey"}
	err := translateDelete(fk)
	assert.ErrorIs(t, err, model.ErrInUse)
	assert.True(t, IsForeignKeyViolation(err))

	assert.ErrorIs(t, translateDelete(pgx.ErrNoRows), model.ErrNotFound)
	assert.NoError(t, translateDelete(nil))
}
