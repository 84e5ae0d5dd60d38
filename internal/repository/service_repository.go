package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumiere/salon/internal/models"
)

var ErrServiceNotFound = errors.New("service not found")

type ServiceRepository struct {
	pool *pgxpool.Pool
}

func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `
	id, category_id, name, slug, description, price_cents, duration_min,
	image_url, is_published, created_at, updated_at
`

func (r *ServiceRepository) Create(ctx context.Context, service models.Service) error {
	const query = `
		INSERT INTO services (
			id, category_id, name, slug, description, price_cents, duration_min,
			image_url, is_published, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		service.ID,
		service.CategoryID,
		service.Name,
		service.Slug,
		service.Description,
		service.PriceCents,
		service.DurationMin,
		service.ImageURL,
		service.IsPublished,
	)
	return err
}

func scanService(row pgx.Row) (models.Service, error) {
	var service models.Service
	if err := row.Scan(
		&service.ID,
		&service.CategoryID,
		&service.Name,
		&service.Slug,
		&service.Description,
		&service.PriceCents,
		&service.DurationMin,
		&service.ImageURL,
		&service.IsPublished,
		&service.CreatedAt,
		&service.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Service{}, ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return service, nil
}

func (r *ServiceRepository) GetByID(ctx context.Context, id string) (models.Service, error) {
	const query = `SELECT ` + serviceColumns + ` FROM services WHERE id = $1`
	return scanService(r.pool.QueryRow(ctx, query, id))
}

func (r *ServiceRepository) List(ctx context.Context, publishedOnly bool) ([]models.Service, error) {
	query := `SELECT ` + serviceColumns + ` FROM services ORDER BY name`
	if publishedOnly {
		query = `SELECT ` + serviceColumns + ` FROM services WHERE is_published ORDER BY name`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		service, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, service)
	}
	return services, rows.Err()
}

func (r *ServiceRepository) Update(ctx context.Context, service models.Service) error {
	const query = `
		UPDATE services SET
			category_id = $2, name = $3, slug = $4, description = $5,
			price_cents = $6, duration_min = $7, image_url = $8, is_published = $9,
			updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		service.ID,
		service.CategoryID,
		service.Name,
		service.Slug,
		service.Description,
		service.PriceCents,
		service.DurationMin,
		service.ImageURL,
		service.IsPublished,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}

func (r *ServiceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM services WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrServiceNotFound
	}
	return nil
}
