package services

import (
	"context"
	"strings"

	"github.com/presenze/apiserver/internal/ean"
	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/types"
)

const (
	maxNameLength = 255

	// barcodeAttempts bounds the generate-and-reserve loop.
	barcodeAttempts = 10
)

// UserRepository defines persistence operations for badge holders.
type UserRepository interface {
	List(ctx context.Context) ([]types.User, error)
	Get(ctx context.Context, barcode string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, barcode string) error
	ReserveBarcode(ctx context.Context, barcode string) (bool, error)
	PruneReservations(ctx context.Context) error
}

// UserService encapsulates badge-holder use-cases.
type UserService struct {
	repo     UserRepository
	notifier notify.Notifier
}

func NewUserService(repo UserRepository, notifier notify.Notifier) *UserService {
	return &UserService{repo: repo, notifier: notifier}
}

func (s *UserService) List(ctx context.Context) ([]types.User, error) {
	return s.repo.List(ctx)
}

// Get validates the barcode format before touching storage.
func (s *UserService) Get(ctx context.Context, barcode string) (types.User, error) {
	if !ean.ValidFormat(barcode) {
		return types.User{}, ErrBarcodeFormat
	}
	return s.repo.Get(ctx, barcode)
}

func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	user.FirstName = strings.TrimSpace(user.FirstName)
	user.LastName = strings.TrimSpace(user.LastName)
	user.Email = strings.TrimSpace(user.Email)

	if user.Barcode == "" {
		return types.User{}, invalid("barcode", "required")
	}
	if !ean.ValidFormat(user.Barcode) {
		return types.User{}, ErrBarcodeFormat
	}
	if user.FirstName == "" {
		return types.User{}, invalid("first_name", "required")
	}
	if user.LastName == "" {
		return types.User{}, invalid("last_name", "required")
	}
	if len(user.FirstName) > maxNameLength {
		return types.User{}, invalid("first_name", "must be at most 255 characters")
	}
	if len(user.LastName) > maxNameLength {
		return types.User{}, invalid("last_name", "must be at most 255 characters")
	}

	return s.repo.Create(ctx, user)
}

// Delete removes the user and all of its entries. The entry cascade is a
// log mutation, so the change notification fires here too.
func (s *UserService) Delete(ctx context.Context, barcode string) error {
	if !ean.ValidFormat(barcode) {
		return ErrBarcodeFormat
	}
	if err := s.repo.Delete(ctx, barcode); err != nil {
		return err
	}
	s.notifier.EntriesChanged(ctx, "user_deleted", barcode)
	return nil
}

// NewBarcode returns a fresh EAN-13 that no user holds and no concurrent
// caller has been handed. Candidates are reserved in storage, so two
// simultaneous calls can never produce the same value.
func (s *UserService) NewBarcode(ctx context.Context) (string, error) {
	// Best effort; stale reservations only waste codes, they cost nothing.
	_ = s.repo.PruneReservations(ctx)

	for attempt := 0; attempt < barcodeAttempts; attempt++ {
		code := ean.New()
		reserved, err := s.repo.ReserveBarcode(ctx, code)
		if err != nil {
			return "", err
		}
		if reserved {
			return code, nil
		}
	}
	return "", ErrNoFreeBarcode
}
