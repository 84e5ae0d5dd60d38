package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumiere/salon/internal/models"
)

var ErrCartItemNotFound = errors.New("cart item not found")

type CartRepository struct {
	pool *pgxpool.Pool
}

func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Upsert adds the service to the user's cart, incrementing the quantity if
// the item is already present.
func (r *CartRepository) Upsert(ctx context.Context, item models.CartItem) error {
	const query = `
		INSERT INTO cart_items (
			id, user_email, service_id, quantity, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, NOW(), NOW()
		)
		ON CONFLICT (user_email, service_id)
		DO UPDATE SET
			quantity = cart_items.quantity + EXCLUDED.quantity,
			updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query,
		item.ID,
		item.UserEmail,
		item.ServiceID,
		item.Quantity,
	)
	return err
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userEmail string, serviceID string, quantity int) error {
	const query = `
		UPDATE cart_items SET quantity = $3, updated_at = NOW()
		WHERE user_email = $1 AND service_id = $2
	`
	cmd, err := r.pool.Exec(ctx, query, userEmail, serviceID, quantity)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userEmail string, serviceID string) error {
	const query = `DELETE FROM cart_items WHERE user_email = $1 AND service_id = $2`
	cmd, err := r.pool.Exec(ctx, query, userEmail, serviceID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userEmail string) ([]models.CartEntry, error) {
	const query = `
		SELECT c.id, c.user_email, c.service_id, c.quantity, c.created_at, c.updated_at,
		       s.name, s.price_cents, s.image_url
		FROM cart_items c
		JOIN services s ON s.id = c.service_id
		WHERE c.user_email = $1
		ORDER BY c.created_at
	`

	rows, err := r.pool.Query(ctx, query, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CartEntry
	for rows.Next() {
		var entry models.CartEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserEmail,
			&entry.ServiceID,
			&entry.Quantity,
			&entry.CreatedAt,
			&entry.UpdatedAt,
			&entry.ServiceName,
			&entry.PriceCents,
			&entry.ImageURL,
		); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrCartItemNotFound
			}
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// PurgeStale removes cart items untouched for longer than retention.
func (r *CartRepository) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	const query = `DELETE FROM cart_items WHERE updated_at < NOW() - make_interval(secs => $1)`
	cmd, err := r.pool.Exec(ctx, query, retention.Seconds())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
