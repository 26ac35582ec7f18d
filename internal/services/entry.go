package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/internal/store"
	"github.com/presenze/apiserver/types"
)

// Tolerance when rejecting future event times, to absorb clock skew
// between clients and the server.
const futureSkew = 30 * time.Second

// EntryRepository defines persistence operations for access-log entries.
type EntryRepository interface {
	List(ctx context.Context, filter store.EntryFilter) ([]types.Entry, error)
	Get(ctx context.Context, id int) (types.Entry, error)
	Create(ctx context.Context, entry types.Entry) (types.Entry, error)
	Delete(ctx context.Context, id int) error
	Presence(ctx context.Context) ([]types.Presence, error)
}

// EntryService encapsulates access-log use-cases and fires the
// change-notification hook after successful mutations.
type EntryService struct {
	repo     EntryRepository
	notifier notify.Notifier
	now      func() time.Time
}

func NewEntryService(repo EntryRepository, notifier notify.Notifier) *EntryService {
	return &EntryService{repo: repo, notifier: notifier, now: time.Now}
}

func (s *EntryService) List(ctx context.Context, filter store.EntryFilter) ([]types.Entry, error) {
	return s.repo.List(ctx, filter)
}

func (s *EntryService) Get(ctx context.Context, id int) (types.Entry, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and persists an entry. The barcode's existence is not
// pre-checked here: the foreign key decides atomically at insert time, so
// a concurrent user delete cannot slip an orphan through.
func (s *EntryService) Create(ctx context.Context, barcode, direction string, eventTime time.Time) (types.Entry, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return types.Entry{}, invalid("barcode", "required")
	}
	if strings.TrimSpace(direction) == "" {
		return types.Entry{}, invalid("direction", "required")
	}
	dir, ok := types.ParseDirection(direction)
	if !ok {
		return types.Entry{}, ErrBadDirection
	}
	if !eventTime.IsZero() && eventTime.After(s.now().Add(futureSkew)) {
		return types.Entry{}, invalid("event_time", "must not be in the future")
	}

	entry, err := s.repo.Create(ctx, types.Entry{
		Barcode:   barcode,
		Direction: dir,
		EventTime: eventTime,
	})
	if err != nil {
		return types.Entry{}, err
	}

	s.notifier.EntriesChanged(ctx, "created", entry.Barcode)
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, id int) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notifier.EntriesChanged(ctx, "deleted", strconv.Itoa(id))
	return nil
}
