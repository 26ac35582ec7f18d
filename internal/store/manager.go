package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/presenze/apiserver/types"
)

// ManagerRepository handles persistence for staff accounts.
type ManagerRepository struct {
	db *sql.DB
}

func NewManagerRepository(db *sql.DB) *ManagerRepository {
	return &ManagerRepository{db: db}
}

func (r *ManagerRepository) GetByUsername(ctx context.Context, username string) (types.Manager, error) {
	const query = `
		SELECT id, username, password_hash, active
		FROM managers
		WHERE username = $1`
	var manager types.Manager
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&manager.ID,
		&manager.Username,
		&manager.PasswordHash,
		&manager.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Manager{}, ErrNotFound
		}
		return types.Manager{}, wrapPQ(err)
	}
	return manager, nil
}

func (r *ManagerRepository) Create(ctx context.Context, manager types.Manager) (types.Manager, error) {
	const query = `
		INSERT INTO managers (username, password_hash, active)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, manager.Username, manager.PasswordHash, manager.Active).
		Scan(&manager.ID)
	if err != nil {
		return types.Manager{}, wrapPQ(err)
	}
	return manager, nil
}

func (r *ManagerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM managers`).Scan(&count); err != nil {
		return 0, wrapPQ(err)
	}
	return count, nil
}

// Activate flips an account to active so it may log in.
func (r *ManagerRepository) Activate(ctx context.Context, username string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE managers SET active = TRUE WHERE username = $1`, username)
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
	return nil
}
