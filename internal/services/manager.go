package services

import (
	"context"
	"errors"
	"strings"

	"github.com/presenze/apiserver/internal/store"
	"github.com/presenze/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// maxManagers caps how many staff accounts may exist.
const maxManagers = 10

// ManagerRepository defines persistence operations for staff accounts.
type ManagerRepository interface {
	GetByUsername(ctx context.Context, username string) (types.Manager, error)
	Create(ctx context.Context, manager types.Manager) (types.Manager, error)
	Count(ctx context.Context) (int, error)
	Activate(ctx context.Context, username string) error
}

// ManagerService encapsulates staff-account use-cases.
type ManagerService struct {
	repo ManagerRepository
}

func NewManagerService(repo ManagerRepository) *ManagerService {
	return &ManagerService{repo: repo}
}

// Register creates a new, inactive manager account.
func (s *ManagerService) Register(ctx context.Context, username, password string) (types.Manager, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return types.Manager{}, invalid("username", "required")
	}
	if password == "" {
		return types.Manager{}, invalid("password", "required")
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return types.Manager{}, err
	}
	if count >= maxManagers {
		return types.Manager{}, ErrManagerLimit
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Manager{}, err
	}

	return s.repo.Create(ctx, types.Manager{
		Username:     username,
		PasswordHash: string(hashed),
		Active:       false,
	})
}

// Login verifies credentials and returns the manager. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (s *ManagerService) Login(ctx context.Context, username, password string) (types.Manager, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.Manager{}, invalid("credentials", "username and password are required")
	}

	manager, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Manager{}, ErrInvalidCredentials
		}
		return types.Manager{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(manager.PasswordHash), []byte(password)); err != nil {
		return types.Manager{}, ErrInvalidCredentials
	}
	if !manager.Active {
		return types.Manager{}, ErrInactiveAccount
	}
	return manager, nil
}

// Activate enables a registered account.
func (s *ManagerService) Activate(ctx context.Context, username string) error {
	return s.repo.Activate(ctx, strings.TrimSpace(username))
}
