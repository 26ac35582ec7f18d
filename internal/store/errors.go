package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors returned by repositories. Handlers map these to HTTP
// statuses, so repositories must never leak a raw driver error: anything
// unexpected is wrapped in ErrUnavailable.
var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("already exists")

	// ErrForeignKey is returned when an entry references a barcode
	// with no matching user.
	ErrForeignKey = errors.New("no user with that barcode")

	// ErrUnavailable wraps unexpected storage failures.
	ErrUnavailable = errors.New("storage unavailable")
)

// Postgres error codes enforced by the schema's constraints.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// wrapPQ translates constraint violations into sentinel errors and wraps
// everything else as unavailable.
func wrapPQ(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqUniqueViolation:
			return ErrConflict
		case pqForeignKeyViolation:
			return ErrForeignKey
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
