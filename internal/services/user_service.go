package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quillpress/engine/internal/models"
	"github.com/quillpress/engine/internal/repository"
	appErr "github.com/quillpress/engine/pkg/errors"
	"github.com/quillpress/engine/pkg/hash"
	"github.com/quillpress/engine/pkg/logger"
)

// Pagination bounds for FindAll.
const (
	DefaultPage     = 1
	DefaultPageSize = 12
	MaxPageSize     = 100
)

// FindAllQuery is the typed filter/pagination input for FindAll. Zero Page
// and PageSize select the defaults; filter fields are optional.
type FindAllQuery struct {
	Page     int
	PageSize int
	Status   string
	Name     string
	Role     string
}

// UpdateUserInput is a partial profile patch. Nil fields keep their prior
// value. Passwords and roles are not updatable through this path.
type UpdateUserInput struct {
	Name   *string
	Status *string
}

// UserService owns the account lifecycle: creation, authentication,
// listing, profile updates and password changes.
type UserService interface {
	// Initialize provisions the configured admin account. Idempotent:
	// an already existing admin is logged and absorbed, anything else
	// surfaces to startup.
	Initialize(ctx context.Context) error

	FindAll(ctx context.Context, q FindAllQuery) ([]models.User, int64, error)
	// CreateUser persists the given record. The password must already be
	// hashed by the caller.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	Login(ctx context.Context, name, password string) (*models.User, error)
	// FindByID returns (nil, nil) when no user matches.
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateByID(ctx context.Context, id uuid.UUID, patch UpdateUserInput) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) (*models.User, error)
}

type userService struct {
	users  repository.UserRepository
	hasher hash.PasswordHasher

	adminName     string
	adminPassword string
}

func NewUserService(users repository.UserRepository, hasher hash.PasswordHasher, adminName, adminPassword string) UserService {
	return &userService{
		users:         users,
		hasher:        hasher,
		adminName:     adminName,
		adminPassword: adminPassword,
	}
}

var _ UserService = (*userService)(nil)

func (s *userService) Initialize(ctx context.Context) error {
	ph, err := s.hasher.Hash(s.adminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Name:         s.adminName,
		PasswordHash: ph,
		Role:         models.RoleAdmin,
		Status:       models.StatusActive,
	}

	_, err = s.CreateUser(ctx, admin)
	switch {
	case err == nil:
		logger.L().Warn("admin account created, change the default password after first login",
			zap.String("name", s.adminName),
			zap.String("password", s.adminPassword),
		)
	case appErr.IsCode(err, appErr.CodeConflict):
		logger.L().Info("admin account already exists", zap.String("name", s.adminName))
	default:
		return err
	}
	return nil
}

func (s *userService) FindAll(ctx context.Context, q FindAllQuery) ([]models.User, int64, error) {
	if q.Page == 0 {
		q.Page = DefaultPage
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		return nil, 0, appErr.New(appErr.CodeInvalid, "page must be >= 1")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return nil, 0, appErr.New(appErr.CodeInvalid, "page_size out of range")
	}

	users, total, err := s.users.List(ctx, repository.ListUsersQuery{
		Offset: (q.Page - 1) * q.PageSize,
		Limit:  q.PageSize,
		Status: q.Status,
		Name:   q.Name,
		Role:   q.Role,
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (s *userService) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if user.Name == "" {
		return nil, appErr.New(appErr.CodeInvalid, "name is required")
	}

	// Pre-check for a friendlier error; the unique index on name remains
	// the authoritative guard against concurrent creates.
	var existing models.User
	err := s.users.GetByName(ctx, user.Name, &existing)
	if err == nil {
		return nil, appErr.New(appErr.CodeConflict, "user already exists")
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.New(appErr.CodeConflict, "user already exists")
		}
		return nil, err
	}

	logger.L().Info("user created", zap.String("user_id", user.ID.String()), zap.String("name", user.Name))
	return user, nil
}

func (s *userService) Login(ctx context.Context, name, password string) (*models.User, error) {
	var user models.User
	err := s.users.GetByName(ctx, name, &user)
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	// A missing user and a wrong password are indistinguishable to the
	// caller.
	if err != nil || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid username or password")
	}

	if user.Locked() {
		return nil, appErr.New(appErr.CodeForbidden, "account locked")
	}

	logger.L().Info("user logged in", zap.String("user_id", user.ID.String()), zap.String("name", user.Name))
	return &user, nil
}

func (s *userService) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.users.GetByID(ctx, id, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

func (s *userService) UpdateByID(ctx context.Context, id uuid.UUID, patch UpdateUserInput) (*models.User, error) {
	var user models.User
	if err := s.users.GetByID(ctx, id, &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeNotFound, "user not found")
		}
		return nil, err
	}

	if patch.Name != nil {
		user.Name = *patch.Name
	}
	if patch.Status != nil {
		if *patch.Status != models.StatusActive && *patch.Status != models.StatusLocked {
			return nil, appErr.New(appErr.CodeInvalid, "invalid status")
		}
		user.Status = *patch.Status
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return nil, err
	}

	logger.L().Info("user updated", zap.String("user_id", user.ID.String()))
	return &user, nil
}

func (s *userService) UpdatePassword(ctx context.Context, id uuid.UUID, oldPassword, newPassword string) (*models.User, error) {
	var user models.User
	err := s.users.GetByID(ctx, id, &user)
	if err != nil && !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	if err != nil || !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return nil, appErr.New(appErr.CodeUnauthorized, "invalid username or password")
	}

	ph, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ph

	if err := s.users.Update(ctx, &user); err != nil {
		return nil, err
	}

	logger.L().Info("password updated", zap.String("user_id", user.ID.String()))
	return &user, nil
}
