package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/presenze/apiserver/internal/notify"
	"github.com/presenze/apiserver/internal/services"
	"github.com/presenze/apiserver/internal/store"
	"github.com/presenze/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes shared by the handler tests ---

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]types.User
	reserved map[string]bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]types.User), reserved: make(map[string]bool)}
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

func newUserTestRouter(repo *fakeUserRepo) *chi.Mux {
	svc := services.NewUserService(repo, notify.Noop{})
	router := chi.NewRouter()
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, svc, nil)
	})
	return router
}

func doRequest(t *testing.T, router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestCreateUser(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())

	rec := doRequest(t, router, http.MethodPost, "/users",
		`{"barcode":"4006381333931","first_name":"Ada","last_name":"Lovelace","email":"ada@example.com"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var user types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "4006381333931", user.Barcode)
	assert.Equal(t, "Ada", user.FirstName)
}

func TestCreateUser_Duplicate(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())
	body := `{"barcode":"4006381333931","first_name":"Ada","last_name":"Lovelace"}`

	rec := doRequest(t, router, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(t, router, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateUser_Invalid(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"barcode":`},
		{"bad barcode", `{"barcode":"123","first_name":"Ada","last_name":"Lovelace"}`},
		{"missing first name", `{"barcode":"4006381333931","last_name":"Lovelace"}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := doRequest(t, router, http.MethodPost, "/users", c.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestGetUser(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["4006381333931"] = types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: "Lovelace"}
	router := newUserTestRouter(repo)

	rec := doRequest(t, router, http.MethodGet, "/users/4006381333931", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/users/0000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/users/short", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsers(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["4006381333931"] = types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: "Lovelace"}
	router := newUserTestRouter(repo)

	rec := doRequest(t, router, http.MethodGet, "/users", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []types.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	assert.Len(t, users, 1)
}

func TestDeleteUser(t *testing.T) {
	repo := newFakeUserRepo()
	repo.users["4006381333931"] = types.User{Barcode: "4006381333931", FirstName: "Ada", LastName: "Lovelace"}
	router := newUserTestRouter(repo)

	rec := doRequest(t, router, http.MethodDelete, "/users/4006381333931", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodDelete, "/users/4006381333931", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewBarcode(t *testing.T) {
	router := newUserTestRouter(newFakeUserRepo())

	rec := doRequest(t, router, http.MethodGet, "/users/newean", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NewBarcodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.NewEAN, 13)

	// A second call must never repeat the first.
	rec = doRequest(t, router, http.MethodGet, "/users/newean", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var second NewBarcodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.NotEqual(t, resp.NewEAN, second.NewEAN)
}
