package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/presenze/apiserver/types"
)

// UserRepository handles persistence for badge holders.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// List returns all users ordered by barcode.
func (r *UserRepository) List(ctx context.Context) ([]types.User, error) {
	const query = `
		SELECT barcode, first_name, last_name, COALESCE(email, '')
		FROM users
		ORDER BY barcode`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()

	users := make([]types.User, 0)
	for rows.Next() {
		var user types.User
		if err := rows.Scan(&user.Barcode, &user.FirstName, &user.LastName, &user.Email); err != nil {
			return nil, wrapPQ(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPQ(err)
	}
	return users, nil
}

func (r *UserRepository) Get(ctx context.Context, barcode string) (types.User, error) {
	const query = `
		SELECT barcode, first_name, last_name, COALESCE(email, '')
		FROM users
		WHERE barcode = $1`
	var user types.User
	err := r.db.QueryRowContext(ctx, query, barcode).Scan(
		&user.Barcode,
		&user.FirstName,
		&user.LastName,
		&user.Email,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, wrapPQ(err)
	}
	return user, nil
}

// Create inserts the user and releases any barcode reservation held for it,
// in one transaction. A duplicate barcode yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.User{}, wrapPQ(err)
	}
	defer tx.Rollback()

	const insert = `
		INSERT INTO users (barcode, first_name, last_name, email)
		VALUES ($1, $2, $3, NULLIF($4, ''))`
	if _, err := tx.ExecContext(ctx, insert, user.Barcode, user.FirstName, user.LastName, user.Email); err != nil {
		return types.User{}, wrapPQ(err)
	}

	const release = `DELETE FROM barcode_reservations WHERE barcode = $1`
	if _, err := tx.ExecContext(ctx, release, user.Barcode); err != nil {
		return types.User{}, wrapPQ(err)
	}

	if err := tx.Commit(); err != nil {
		return types.User{}, wrapPQ(err)
	}
	return user, nil
}

// Delete removes the user and all of its entries atomically.
func (r *UserRepository) Delete(ctx context.Context, barcode string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapPQ(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entries WHERE barcode = $1`, barcode); err != nil {
		return wrapPQ(err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE barcode = $1`, barcode)
	if err != nil {
		return wrapPQ(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapPQ(err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return wrapPQ(err)
	}
	return nil
}

// ReserveBarcode atomically claims a generated barcode so that concurrent
// generators never hand out the same value. It reports false when the
// barcode is already reserved or belongs to an existing user.
func (r *UserRepository) ReserveBarcode(ctx context.Context, barcode string) (bool, error) {
	const query = `
		INSERT INTO barcode_reservations (barcode)
		SELECT $1
		WHERE NOT EXISTS (SELECT 1 FROM users WHERE barcode = $1)
		ON CONFLICT (barcode) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, barcode)
	if err != nil {
		return false, wrapPQ(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, wrapPQ(err)
	}
	return affected == 1, nil
}

// PruneReservations drops reservations that were never turned into users.
func (r *UserRepository) PruneReservations(ctx context.Context) error {
	const query = `DELETE FROM barcode_reservations WHERE reserved_at < now() - interval '1 hour'`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return wrapPQ(err)
	}
	return nil
}
