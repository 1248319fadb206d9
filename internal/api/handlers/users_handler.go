package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillpress/engine/internal/api/middleware"
	"github.com/quillpress/engine/internal/api/types"
	"github.com/quillpress/engine/internal/models"
	"github.com/quillpress/engine/internal/services"
	"github.com/quillpress/engine/pkg/hash"
)

type UsersHandler struct {
	users    services.UserService
	hasher   hash.PasswordHasher
	validate interface{ Struct(any) error }
}

func NewUsersHandler(users services.UserService, hasher hash.PasswordHasher, v interface{ Struct(any) error }) *UsersHandler {
	return &UsersHandler{users: users, hasher: hasher, validate: v}
}

// listQueryKeys is the allow-list of recognized query parameters; anything
// else is rejected rather than blindly turned into a filter.
var listQueryKeys = map[string]struct{}{
	"page":      {},
	"page_size": {},
	"status":    {},
	"name":      {},
	"role":      {},
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	for key := range q {
		if _, ok := listQueryKeys[key]; !ok {
			writeInvalid(w, "unrecognized query parameter: "+key)
			return
		}
	}

	var query services.FindAllQuery
	var err error
	if s := q.Get("page"); s != "" {
		if query.Page, err = strconv.Atoi(s); err != nil {
			writeInvalid(w, "page must be a number")
			return
		}
	}
	if s := q.Get("page_size"); s != "" {
		if query.PageSize, err = strconv.Atoi(s); err != nil {
			writeInvalid(w, "page_size must be a number")
			return
		}
	}
	query.Status = q.Get("status")
	query.Name = q.Get("name")
	query.Role = q.Get("role")

	users, total, err := h.users.FindAll(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	page, pageSize := query.Page, query.PageSize
	if page == 0 {
		page = services.DefaultPage
	}
	if pageSize == 0 {
		pageSize = services.DefaultPageSize
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    users,
		Meta: &types.Meta{
			RequestID: middleware.GetRequestID(r.Context()),
			Page:      page,
			PageSize:  pageSize,
			Total:     total,
		},
	})
}

func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	// The service expects an already hashed password.
	ph, err := h.hasher.Hash(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	u := &models.User{
		Name:         req.Name,
		PasswordHash: ph,
		Role:         req.Role,
		Status:       req.Status,
	}
	created, err := h.users.CreateUser(r.Context(), u)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, types.APIResponse{Success: true, Data: created})
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	u, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, types.APIResponse{
			Success: false,
			Error:   &types.APIError{Code: "not_found", Message: "user not found"},
		})
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: u})
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if !h.selfOrAdmin(w, r, id) {
		return
	}

	var req types.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	u, err := h.users.UpdateByID(r.Context(), id, services.UpdateUserInput{
		Name:   req.Name,
		Status: req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: u})
}

func (h *UsersHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if !h.selfOrAdmin(w, r, id) {
		return
	}

	var req types.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeInvalid(w, err.Error())
		return
	}

	u, err := h.users.UpdatePassword(r.Context(), id, req.OldPassword, req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: u})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeInvalid(w, "invalid user id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *UsersHandler) selfOrAdmin(w http.ResponseWriter, r *http.Request, id uuid.UUID) bool {
	ctx := r.Context()
	if middleware.GetUserRole(ctx) == models.RoleAdmin || middleware.GetUserID(ctx) == id.String() {
		return true
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
	return false
}
