package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/quillpress/engine/internal/api/handlers"
	"github.com/quillpress/engine/internal/models"
	"github.com/quillpress/engine/internal/repository"
	"github.com/quillpress/engine/internal/services"
	"github.com/quillpress/engine/pkg/hash"
	"github.com/quillpress/engine/pkg/logger"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("error", "console"); err != nil {
		panic(err)
	}
	m.Run()
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	repo := repository.NewUserRepository(db)
	hasher := hash.NewBcrypt(4)
	svc := services.NewUserService(repo, hasher, "admin", "bootstrap-password")
	require.NoError(t, svc.Initialize(context.Background()))

	secret := []byte("test-secret")
	validate := validator.New(validator.WithRequiredStructEnabled())
	return NewRouter(Dependencies{
		HMACSecret:   secret,
		AuthHandler:  handlers.NewAuthHandler(svc, secret),
		UsersHandler: handlers.NewUsersHandler(svc, hasher, validate),
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Meta *struct {
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Total    int64 `json:"total"`
	} `json:"meta"`
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env envelope
	if rr.Body.Len() > 0 {
		_ = json.Unmarshal(rr.Body.Bytes(), &env)
	}
	return rr, env
}

func loginToken(t *testing.T, router http.Handler, name, password string) (string, models.User) {
	t.Helper()
	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"name": name, "password": password,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data struct {
		AccessToken string      `json:"access_token"`
		User        models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(t, data.AccessToken)
	return data.AccessToken, data.User
}

func TestLoginEndpoint(t *testing.T) {
	router := newTestRouter(t)

	token, admin := loginToken(t, router, "admin", "bootstrap-password")
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"name": "admin", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Code)
}

func TestLoginNeverLeaksPasswordHash(t *testing.T) {
	router := newTestRouter(t)
	rr, _ := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"name": "admin", "password": "bootstrap-password",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "$2") // bcrypt prefix
	assert.NotContains(t, rr.Body.String(), "password_hash")
}

func TestUserCRUDFlow(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginToken(t, router, "admin", "bootstrap-password")

	// create
	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/users", token, map[string]string{
		"name": "alice", "password": "alice-password",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var alice models.User
	require.NoError(t, json.Unmarshal(env.Data, &alice))
	assert.Equal(t, models.RoleUser, alice.Role)
	assert.Equal(t, models.StatusActive, alice.Status)

	// duplicate create
	rr, env = doJSON(t, router, http.MethodPost, "/api/v1/users", token, map[string]string{
		"name": "alice", "password": "other-password",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "conflict", env.Error.Code)

	// list
	rr, env = doJSON(t, router, http.MethodGet, "/api/v1/users?page=1&page_size=10", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, env.Meta)
	assert.EqualValues(t, 2, env.Meta.Total)

	// fetch
	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users/"+alice.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	// fetch unknown id
	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users/6ba7b810-9dad-11d1-80b4-00c04fd430c8", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// fetch malformed id
	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	// rename
	rr, env = doJSON(t, router, http.MethodPut, "/api/v1/users/"+alice.ID.String(), token, map[string]string{
		"name": "alicia",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var renamed models.User
	require.NoError(t, json.Unmarshal(env.Data, &renamed))
	assert.Equal(t, "alicia", renamed.Name)
}

func TestPasswordChangeFlow(t *testing.T) {
	router := newTestRouter(t)
	adminToken, _ := loginToken(t, router, "admin", "bootstrap-password")

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"name": "bob", "password": "bob-password-1",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var bob models.User
	require.NoError(t, json.Unmarshal(env.Data, &bob))

	bobToken, _ := loginToken(t, router, "bob", "bob-password-1")
	path := fmt.Sprintf("/api/v1/users/%s/password", bob.ID)

	// wrong old password
	rr, _ = doJSON(t, router, http.MethodPut, path, bobToken, map[string]string{
		"old_password": "nope", "new_password": "bob-password-2",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// correct old password
	rr, _ = doJSON(t, router, http.MethodPut, path, bobToken, map[string]string{
		"old_password": "bob-password-1", "new_password": "bob-password-2",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	loginToken(t, router, "bob", "bob-password-2")
	rr, _ = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"name": "bob", "password": "bob-password-1",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListValidation(t *testing.T) {
	router := newTestRouter(t)
	token, _ := loginToken(t, router, "admin", "bootstrap-password")

	rr, _ := doJSON(t, router, http.MethodGet, "/api/v1/users?page=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users?favourite_colour=blue", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users?page_size=9999", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAuthorization(t *testing.T) {
	router := newTestRouter(t)
	adminToken, _ := loginToken(t, router, "admin", "bootstrap-password")

	// no token
	rr, _ := doJSON(t, router, http.MethodGet, "/api/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// non-admin token cannot list or create
	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"name": "carol", "password": "carol-password",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var carol models.User
	require.NoError(t, json.Unmarshal(env.Data, &carol))

	carolToken, _ := loginToken(t, router, "carol", "carol-password")
	rr, _ = doJSON(t, router, http.MethodGet, "/api/v1/users", carolToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// non-admin cannot update someone else
	_, admin := loginToken(t, router, "admin", "bootstrap-password")
	rr, _ = doJSON(t, router, http.MethodPut, "/api/v1/users/"+admin.ID.String(), carolToken, map[string]string{
		"name": "hijacked",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLockedAccountCannotLogin(t *testing.T) {
	router := newTestRouter(t)
	adminToken, _ := loginToken(t, router, "admin", "bootstrap-password")

	rr, env := doJSON(t, router, http.MethodPost, "/api/v1/users", adminToken, map[string]string{
		"name": "dora", "password": "dora-password",
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	var dora models.User
	require.NoError(t, json.Unmarshal(env.Data, &dora))

	rr, _ = doJSON(t, router, http.MethodPut, "/api/v1/users/"+dora.ID.String(), adminToken, map[string]string{
		"status": "locked",
	})
	require.Equal(t, http.StatusOK, rr.Code)

	rr, env = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"name": "dora", "password": "dora-password",
	})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "forbidden", env.Error.Code)
}
