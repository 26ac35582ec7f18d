package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/internal/store"
	"github.com/presenze/apiserver/types"
)

// --- fakes ---

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]types.User
	reserved map[string]bool

	createErr error
	deleteErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:    make(map[string]types.User),
		reserved: make(map[string]bool),
	}
}

func (f *fakeUserRepo) List(ctx context.Context) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserRepo) Get(ctx context.Context, barcode string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[barcode]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[user.Barcode]; exists {
		return types.User{}, store.ErrConflict
	}
	f.users[user.Barcode] = user
	delete(f.reserved, user.Barcode)
	return user, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, barcode string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[barcode]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, barcode)
	return nil
}

func (f *fakeUserRepo) ReserveBarcode(ctx context.Context, barcode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.users[barcode]; exists {
		return false, nil
	}
	if f.reserved[barcode] {
		return false, nil
	}
	f.reserved[barcode] = true
	return true, nil
}

func (f *fakeUserRepo) PruneReservations(ctx context.Context) error { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (n *recordingNotifier) EntriesChanged(ctx context.Context, op, ref string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, op+":"+ref)
}

func (n *recordingNotifier) ops() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.calls...)
}

var _ notify.Notifier = (*recordingNotifier)(nil)

// --- tests ---

func TestUserCreate_TrimsNames(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), notify.Noop{})

	user, err := svc.Create(context.Background(), types.User{
		Barcode:   "4006381333931",
		FirstName: "  Ada  ",
		LastName:  "\tLovelace ",
		Email:     " ada@example.com ",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if user.FirstName != "Ada" || user.LastName != "Lovelace" || user.Email != "ada@example.com" {
		t.Fatalf("fields not trimmed: %+v", user)
	}
}

func TestUserCreate_Validation(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), notify.Noop{})
	long := strings.Repeat("x", 256)

	cases := []struct {
		name string
		user types.User
	}{
		{"missing barcode", types.User{FirstName: "Ada", LastName: "Lovelace"}},
		{"short barcode", types.User{Barcode: "123", FirstName: "Ada", LastName: "Lovelace"}},
		{"non-digit barcode", types.User{Barcode: "40063813339xy", FirstName: "Ada", LastName: "Lovelace"}},
		{"blank first name", types.User{Barcode: "4006381333931", FirstName: "   ", LastName: "Lovelace"}},
		{"blank last name", types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: ""}},
		{"long first name", types.User{Barcode: "4006381333931", FirstName: long, LastName: "Lovelace"}},
		{"long last name", types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: long}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), c.user)
			var ve *ValidationError
			if !errors.As(err, &ve) && !errors.Is(err, ErrBarcodeFormat) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUserCreate_OptionalEmail(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), notify.Noop{})

	user, err := svc.Create(context.Background(), types.User{
		Barcode:   "4006381333931",
		FirstName: "Ada",
		LastName:  "Lovelace",
	})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if user.Email != "" {
		t.Fatalf("expected empty email, got %q", user.Email)
	}
}

func TestUserCreate_Duplicate(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, notify.Noop{})
	user := types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: "Lovelace"}

	if _, err := svc.Create(context.Background(), user); err != nil {
		t.Fatalf("first Create error: %v", err)
	}
	_, err := svc.Create(context.Background(), user)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestUserGet_BadFormat(t *testing.T) {
	svc := NewUserService(newFakeUserRepo(), notify.Noop{})

	_, err := svc.Get(context.Background(), "not-a-barcode")
	if !errors.Is(err, ErrBarcodeFormat) {
		t.Fatalf("want ErrBarcodeFormat, got %v", err)
	}
}

func TestUserDelete_Notifies(t *testing.T) {
	repo := newFakeUserRepo()
	notifier := &recordingNotifier{}
	svc := NewUserService(repo, notifier)

	if _, err := svc.Create(context.Background(), types.User{
		Barcode: "4006381333931", FirstName: "Ada", LastName: "Lovelace",
	}); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := svc.Delete(context.Background(), "4006381333931"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	ops := notifier.ops()
	if len(ops) != 1 || ops[0] != "user_deleted:4006381333931" {
		t.Fatalf("unexpected notifications: %v", ops)
	}
}

func TestUserDelete_NotFoundDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewUserService(newFakeUserRepo(), notifier)

	err := svc.Delete(context.Background(), "4006381333931")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if len(notifier.ops()) != 0 {
		t.Fatalf("unexpected notifications: %v", notifier.ops())
	}
}

func TestNewBarcode_Distinct(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo, notify.Noop{})

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code, err := svc.NewBarcode(context.Background())
		if err != nil {
			t.Fatalf("NewBarcode error on attempt %d: %v", i, err)
		}
		if len(code) != 13 {
			t.Fatalf("bad barcode %q", code)
		}
		if seen[code] {
			t.Fatalf("duplicate barcode %q", code)
		}
		seen[code] = true
	}
}

func TestNewBarcode_Exhausted(t *testing.T) {
	// A repo that refuses every reservation drives the loop to its cap.
	refusing := &refusingUserRepo{fakeUserRepo: newFakeUserRepo()}
	svc := NewUserService(refusing, notify.Noop{})

	_, err := svc.NewBarcode(context.Background())
	if !errors.Is(err, ErrNoFreeBarcode) {
		t.Fatalf("want ErrNoFreeBarcode, got %v", err)
	}
	if refusing.attempts != barcodeAttempts {
		t.Fatalf("expected %d attempts, got %d", barcodeAttempts, refusing.attempts)
	}
}

type refusingUserRepo struct {
	*fakeUserRepo
	attempts int
}

func (f *refusingUserRepo) ReserveBarcode(ctx context.Context, barcode string) (bool, error) {
	f.attempts++
	return false, nil
}
