package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumiere/salon/internal/models"
)

var ErrCategoryNotFound = errors.New("category not found")

type CategoryRepository struct {
	pool *pgxpool.Pool
}

func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

const categoryColumns = `id, name, slug, image_url, sort_order, is_published, created_at, updated_at`

func (r *CategoryRepository) Create(ctx context.Context, category models.Category) error {
	const query = `
		INSERT INTO categories (
			id, name, slug, image_url, sort_order, is_published, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Name,
		category.Slug,
		category.ImageURL,
		category.SortOrder,
		category.IsPublished,
	)
	return err
}

func scanCategory(row pgx.Row) (models.Category, error) {
	var category models.Category
	if err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Slug,
		&category.ImageURL,
		&category.SortOrder,
		&category.IsPublished,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Category{}, ErrCategoryNotFound
		}
		return models.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (models.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	return scanCategory(r.pool.QueryRow(ctx, query, id))
}

func (r *CategoryRepository) List(ctx context.Context, publishedOnly bool) ([]models.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories ORDER BY sort_order, name`
	if publishedOnly {
		query = `SELECT ` + categoryColumns + ` FROM categories WHERE is_published ORDER BY sort_order, name`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []models.Category
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, category)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Update(ctx context.Context, category models.Category) error {
	const query = `
		UPDATE categories SET
			name = $2, slug = $3, image_url = $4, sort_order = $5, is_published = $6, updated_at = NOW()
		WHERE id = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		category.ID,
		category.Name,
		category.Slug,
		category.ImageURL,
		category.SortOrder,
		category.IsPublished,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM categories WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
