package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicbook/libs/db"
	"github.com/md-rashed-zaman/clinicbook/services/clinic-service/internal/model"
)

type ServiceRepository struct {
	pool *db.Pool
}

func NewServiceRepository(pool *db.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `id, name, description, duration_minutes, price::float8, available, created_at, updated_at`

func scanService(row pgx.Row) (model.Service, error) {
	var s model.Service
	err := row.Scan(&s.ID, &s.Name, &s.Description, &s.DurationMinutes, &s.Price, &s.Available, &s.CreatedAt, &s.UpdatedAt)
	return s, translate(err)
}

func getService(ctx context.Context, q querier, id int64) (model.Service, error) {
	return scanService(q.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
}

// List returns services ordered by name. onlyAvailable hides services that
// cannot currently be booked.
func (r *ServiceRepository) List(ctx context.Context, onlyAvailable bool) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE available OR NOT $1
		ORDER BY name ASC, id ASC
	`, onlyAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := []model.Service{}
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return services, nil
}

func (r *ServiceRepository) Get(ctx context.Context, id int64) (model.Service, error) {
	return getService(ctx, r.pool, id)
}

func (r *ServiceRepository) Create(ctx context.Context, s model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		INSERT INTO services (name, description, duration_minutes, price, available)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+serviceColumns,
		s.Name, s.Description, s.DurationMinutes, s.Price, s.Available))
}

func (r *ServiceRepository) Update(ctx context.Context, s model.Service) (model.Service, error) {
	return scanService(r.pool.QueryRow(ctx, `
		UPDATE services
		SET name = $2,
			description = $3,
			duration_minutes = $4,
			price = $5,
			available = $6,
			updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns,
		s.ID, s.Name, s.Description, s.DurationMinutes, s.Price, s.Available))
}

// Delete returns model.ErrInUse while appointments still reference the
// service.
func (r *ServiceRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		return translateDelete(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
