package storage

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/outbox"
)

type UserRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewUserRepository(pool *db.Pool, outboxRepo *outbox.Repository) *UserRepository {
	return &UserRepository{pool: pool, outbox: outboxRepo}
}

const userColumns = `id, name, email, password_hash, phone, role, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Phone, &u.Role, &u.CreatedAt)
	return u, translate(err)
}

// Create inserts u and queues a registration event in the same
// transaction. A taken email yields model.ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, u model.User) (model.User, error) {
	var created model.User
	err := r.pool.InTx(ctx, func(tx pgx.Tx) error {
		var err error
		created, err = scanUser(tx.QueryRow(ctx, `
			INSERT INTO users (name, email, password_hash, phone, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+userColumns,
			u.Name, u.Email, u.PasswordHash, u.Phone, u.Role))
		if err != nil {
			return err
		}

		payload, err := json.Marshal(map[string]any{
			"user_id":    created.ID,
			"name":       created.Name,
			"email":      created.Email,
			"role":       created.Role,
			"created_at": created.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}
		return r.outbox.Insert(ctx, tx, outbox.Event{
			AggregateType: outbox.AggregateUser,
			AggregateID:   strconv.FormatInt(created.ID, 10),
			EventType:     outbox.UserRegistered,
			Payload:       payload,
		})
	})
	if err != nil {
		return model.User{}, err
	}
	return created, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// EnsureAdmin creates the bootstrap admin, or promotes an existing account
// with that email. An existing password is left untouched.
func (r *UserRepository) EnsureAdmin(ctx context.Context, name, email, passwordHash string) (model.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO UPDATE SET role = 'admin'
		RETURNING `+userColumns,
		name, email, passwordHash))
}
