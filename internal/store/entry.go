package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/presenze/apiserver/types"
)

// EntryFilter narrows a listing. Zero values mean "no constraint";
// From is inclusive, To is exclusive.
type EntryFilter struct {
	Barcode string
	From    *time.Time
	To      *time.Time
}

// EntryRepository handles persistence for access-log entries.
type EntryRepository struct {
	db *sql.DB
}

func NewEntryRepository(db *sql.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

// List returns entries matching the filter, ordered by id ascending so
// results are stable for pagination and tests.
func (r *EntryRepository) List(ctx context.Context, filter EntryFilter) ([]types.Entry, error) {
	query := `
		SELECT id, barcode, direction, event_time, event_offset_secs
		FROM entries
		WHERE 1=1`
	args := make([]any, 0, 3)

	if filter.Barcode != "" {
		args = append(args, filter.Barcode)
		query += fmt.Sprintf(" AND barcode = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND event_time >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND event_time < $%d", len(args))
	}
	query += " ORDER BY id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()

	entries := make([]types.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, wrapPQ(err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPQ(err)
	}
	return entries, nil
}

func (r *EntryRepository) Get(ctx context.Context, id int) (types.Entry, error) {
	const query = `
		SELECT id, barcode, direction, event_time, event_offset_secs
		FROM entries
		WHERE id = $1`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Entry{}, ErrNotFound
		}
		return types.Entry{}, wrapPQ(err)
	}
	return entry, nil
}

// Create inserts the entry. The users foreign key makes the existence
// check and the insert a single atomic step, so a concurrent user delete
// can only yield ErrForeignKey, never an orphaned entry. A zero EventTime
// is assigned by the database at commit time.
func (r *EntryRepository) Create(ctx context.Context, entry types.Entry) (types.Entry, error) {
	if entry.EventTime.IsZero() {
		const query = `
			INSERT INTO entries (barcode, direction)
			VALUES ($1, $2)
			RETURNING id, event_time`
		var assigned time.Time
		err := r.db.QueryRowContext(ctx, query, entry.Barcode, entry.Direction).
			Scan(&entry.ID, &assigned)
		if err != nil {
			return types.Entry{}, wrapPQ(err)
		}
		entry.EventTime = assigned.UTC()
		return entry, nil
	}

	// The caller's UTC offset is stored alongside the timestamptz so the
	// value round-trips exactly; Postgres alone would normalize it away.
	_, offset := entry.EventTime.Zone()
	const query = `
		INSERT INTO entries (barcode, direction, event_time, event_offset_secs)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, entry.Barcode, entry.Direction, entry.EventTime, offset).
		Scan(&entry.ID)
	if err != nil {
		return types.Entry{}, wrapPQ(err)
	}
	return entry, nil
}

// Delete removes a single entry. The referenced user is untouched.
func (r *EntryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
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

// Presence returns the newest entry per barcode, keeping only badges
// whose latest event is a CHECKIN, newest first.
func (r *EntryRepository) Presence(ctx context.Context) ([]types.Presence, error) {
	const query = `
		SELECT u.barcode, u.first_name, u.last_name, l.event_time
		FROM (SELECT DISTINCT ON (barcode) barcode, event_time, direction
		      FROM entries
		      ORDER BY barcode, event_time DESC) AS l
		JOIN users u ON u.barcode = l.barcode
		WHERE l.direction = 'CHECKIN'
		ORDER BY l.event_time DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapPQ(err)
	}
	defer rows.Close()

	present := make([]types.Presence, 0)
	for rows.Next() {
		var p types.Presence
		if err := rows.Scan(&p.Barcode, &p.FirstName, &p.LastName, &p.EventTime); err != nil {
			return nil, wrapPQ(err)
		}
		present = append(present, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapPQ(err)
	}
	return present, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (types.Entry, error) {
	var entry types.Entry
	var eventTime time.Time
	var offsetSecs int
	if err := row.Scan(&entry.ID, &entry.Barcode, &entry.Direction, &eventTime, &offsetSecs); err != nil {
		return types.Entry{}, err
	}
	entry.EventTime = eventTime.In(time.FixedZone("", offsetSecs))
	return entry, nil
}
