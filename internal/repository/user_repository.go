package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"lumiere/salon/internal/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = `
	email, password_hash, first_name, last_name, dob, gender, phone,
	street, suburb, postcode, state, country,
	is_admin, is_active, created_at, updated_at
`

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	const query = `
		INSERT INTO users (
			email, password_hash, first_name, last_name, dob, gender, phone,
			street, suburb, postcode, state, country,
			is_admin, is_active, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.DOB,
		user.Gender,
		user.Phone,
		user.Address.Street,
		user.Address.Suburb,
		user.Address.Postcode,
		user.Address.State,
		user.Address.Country,
		user.IsAdmin,
		user.IsActive,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUserExists
		}
		return err
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.DOB,
		&user.Gender,
		&user.Phone,
		&user.Address.Street,
		&user.Address.Suburb,
		&user.Address.Postcode,
		&user.Address.State,
		&user.Address.Country,
		&user.IsAdmin,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Update rewrites profile and flag fields. Email and password are immutable
// here; the password changes only through UpdatePassword.
func (r *UserRepository) Update(ctx context.Context, user models.User) error {
	const query = `
		UPDATE users SET
			first_name = $2, last_name = $3, dob = $4, gender = $5, phone = $6,
			street = $7, suburb = $8, postcode = $9, state = $10, country = $11,
			is_admin = $12, is_active = $13, updated_at = NOW()
		WHERE email = $1
	`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.FirstName,
		user.LastName,
		user.DOB,
		user.Gender,
		user.Phone,
		user.Address.Street,
		user.Address.Suburb,
		user.Address.Postcode,
		user.Address.State,
		user.Address.Country,
		user.IsAdmin,
		user.IsActive,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, email string, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE email = $1`
	cmd, err := r.pool.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, email string) error {
	const query = `DELETE FROM users WHERE email = $1`
	cmd, err := r.pool.Exec(ctx, query, email)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
