package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/internal/store"
	"github.com/presenze/apiserver/types"
)

type fakeEntryRepo struct {
	nextID  int
	entries map[int]types.Entry

	createErr error
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{nextID: 1, entries: make(map[int]types.Entry)}
}

func (f *fakeEntryRepo) List(ctx context.Context, filter store.EntryFilter) ([]types.Entry, error) {
	out := make([]types.Entry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	return out, nil
}

func (f *fakeEntryRepo) Get(ctx context.Context, id int) (types.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return types.Entry{}, store.ErrNotFound
	}
	return e, nil
}

func (f *fakeEntryRepo) Create(ctx context.Context, entry types.Entry) (types.Entry, error) {
	if f.createErr != nil {
		return types.Entry{}, f.createErr
	}
	entry.ID = f.nextID
	f.nextID++
	if entry.EventTime.IsZero() {
		entry.EventTime = time.Now().UTC()
	}
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeEntryRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.entries[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.entries, id)
	return nil
}

func (f *fakeEntryRepo) Presence(ctx context.Context) ([]types.Presence, error) {
	return nil, nil
}

func newEntryServiceAt(repo EntryRepository, notifier notify.Notifier, now time.Time) *EntryService {
	svc := NewEntryService(repo, notifier)
	svc.now = func() time.Time { return now }
	return svc
}

func TestEntryCreate_NormalizesDirection(t *testing.T) {
	repo := newFakeEntryRepo()
	svc := NewEntryService(repo, notify.Noop{})

	for _, raw := range []string{"checkin", "CheckIn", "CHECKIN"} {
		entry, err := svc.Create(context.Background(), "4006381333931", raw, time.Time{})
		if err != nil {
			t.Fatalf("Create(%q) error: %v", raw, err)
		}
		if entry.Direction != types.DirectionCheckIn {
			t.Fatalf("Create(%q) direction = %q", raw, entry.Direction)
		}
	}
}

func TestEntryCreate_BadDirection(t *testing.T) {
	svc := NewEntryService(newFakeEntryRepo(), notify.Noop{})

	_, err := svc.Create(context.Background(), "4006381333931", "SIDEWAYS", time.Time{})
	if !errors.Is(err, ErrBadDirection) {
		t.Fatalf("want ErrBadDirection, got %v", err)
	}
}

func TestEntryCreate_MissingFields(t *testing.T) {
	svc := NewEntryService(newFakeEntryRepo(), notify.Noop{})

	if _, err := svc.Create(context.Background(), "", "CHECKIN", time.Time{}); err == nil {
		t.Fatalf("expected error for missing barcode")
	}
	if _, err := svc.Create(context.Background(), "4006381333931", "  ", time.Time{}); err == nil {
		t.Fatalf("expected error for missing direction")
	}
}

func TestEntryCreate_RejectsFutureTime(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	svc := newEntryServiceAt(newFakeEntryRepo(), notify.Noop{}, now)

	_, err := svc.Create(context.Background(), "4006381333931", "CHECKIN", now.Add(time.Hour))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want validation error, got %v", err)
	}

	// Within the skew tolerance is fine.
	if _, err := svc.Create(context.Background(), "4006381333931", "CHECKIN", now.Add(10*time.Second)); err != nil {
		t.Fatalf("Create within skew error: %v", err)
	}
}

func TestEntryCreate_Notifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewEntryService(newFakeEntryRepo(), notifier)

	if _, err := svc.Create(context.Background(), "4006381333931", "CHECKOUT", time.Time{}); err != nil {
		t.Fatalf("Create error: %v", err)
	}

	ops := notifier.ops()
	if len(ops) != 1 || ops[0] != "created:4006381333931" {
		t.Fatalf("unexpected notifications: %v", ops)
	}
}

func TestEntryCreate_UnknownBarcodeDoesNotNotify(t *testing.T) {
	repo := newFakeEntryRepo()
	repo.createErr = store.ErrForeignKey
	notifier := &recordingNotifier{}
	svc := NewEntryService(repo, notifier)

	_, err := svc.Create(context.Background(), "4006381333931", "CHECKIN", time.Time{})
	if !errors.Is(err, store.ErrForeignKey) {
		t.Fatalf("want ErrForeignKey, got %v", err)
	}
	if len(notifier.ops()) != 0 {
		t.Fatalf("unexpected notifications: %v", notifier.ops())
	}
}

func TestEntryDelete_Notifies(t *testing.T) {
	repo := newFakeEntryRepo()
	notifier := &recordingNotifier{}
	svc := NewEntryService(repo, notifier)

	entry, err := svc.Create(context.Background(), "4006381333931", "CHECKIN", time.Time{})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := svc.Delete(context.Background(), entry.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	ops := notifier.ops()
	if len(ops) != 2 || ops[1] != "deleted:1" {
		t.Fatalf("unexpected notifications: %v", ops)
	}
}

func TestEntryDelete_NotFound(t *testing.T) {
	svc := NewEntryService(newFakeEntryRepo(), notify.Noop{})

	err := svc.Delete(context.Background(), 42)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
