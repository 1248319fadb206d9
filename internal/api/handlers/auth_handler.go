package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/quillpress/engine/internal/api/types"
	"github.com/quillpress/engine/internal/services"
)

type AuthHandler struct {
	users      services.UserService
	hmacSecret []byte
}

func NewAuthHandler(users services.UserService, secret []byte) *AuthHandler {
	return &AuthHandler{users: users, hmacSecret: secret}
}

// Login authenticates a name/password pair and issues a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalid(w, "invalid json")
		return
	}
	if req.Name == "" || req.Password == "" {
		writeInvalid(w, "name and password are required")
		return
	}

	u, err := h.users.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  u.ID.String(),
		"role": u.Role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	})
	tokenString, err := token.SignedString(h.hmacSecret)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data: map[string]any{
			"access_token": tokenString,
			"token_type":   "Bearer",
			"expires_in":   86400,
			"user":         u,
		},
	})
}
