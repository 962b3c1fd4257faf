package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, model.ErrNotFound)
}

// translate maps driver errors onto the model sentinels, keeping the
// original error in the chain. A foreign key violation here comes from an
// insert or update whose referenced row is gone.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return model.ErrNotFound
	case IsUniqueViolation(err):
		return fmt.Errorf("%w: %w", model.ErrDuplicate, err)
	case IsForeignKeyViolation(err):
		return fmt.Errorf("%w: %w", model.ErrMissingReference, err)
	default:
		return err
	}
}

// translateDelete is translate for deletes, where a foreign key violation
// means other rows still reference the one being removed.
func translateDelete(err error) error {
	if IsForeignKeyViolation(err) {
		return fmt.Errorf("%w: %w", model.ErrInUse, err)
	}
	return translate(err)
}
