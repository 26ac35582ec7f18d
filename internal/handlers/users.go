package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/presenze/apiserver/internal/services"
	"github.com/presenze/apiserver/types"
)

// UserHandler provides HTTP handlers for badge holders.
type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user routes on the given router. Mutations go
// through authMiddleware when one is provided; reads stay open.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Get("/", handler.ListUsers)
	r.Get("/newean", handler.NewBarcode)
	r.Get("/{barcode}", handler.GetUser)
	if authMiddleware != nil {
		r.With(authMiddleware).Post("/", handler.CreateUser)
		r.With(authMiddleware).Delete("/{barcode}", handler.DeleteUser)
	} else {
		r.Post("/", handler.CreateUser)
		r.Delete("/{barcode}", handler.DeleteUser)
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Get(r.Context(), chi.URLParam(r, "barcode"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.userService.Create(r.Context(), types.User{
		Barcode:   req.Barcode,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Delete(r.Context(), chi.URLParam(r, "barcode")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "user deleted"})
}

// NewBarcode hands out a fresh barcode for a badge about to be printed.
func (h *UserHandler) NewBarcode(w http.ResponseWriter, r *http.Request) {
	code, err := h.userService.NewBarcode(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewBarcodeResponse{NewEAN: code})
}

type CreateUserRequest struct {
	Barcode   string `json:"barcode"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type NewBarcodeResponse struct {
	NewEAN string `json:"new_ean"`
}
