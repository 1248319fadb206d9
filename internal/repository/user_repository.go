package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/quillpress/engine/internal/models"
	appErr "github.com/quillpress/engine/pkg/errors"
)

// ListUsersQuery carries validated pagination and filter parameters for a
// user listing. Status is an exact match; Name and Role are case-sensitive
// substring matches. All present filters combine with AND.
type ListUsersQuery struct {
	Offset int
	Limit  int
	Status string
	Name   string
	Role   string
}

type UserRepository interface {
	BaseRepository[models.User]
	GetByName(ctx context.Context, name string, dest *models.User) error
	List(ctx context.Context, q ListUsersQuery) ([]models.User, int64, error)
}

type userRepository struct {
	BaseRepository[models.User]
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{BaseRepository: NewBaseRepository[models.User](db), db: db}
}

func (r *userRepository) GetByName(ctx context.Context, name string, dest *models.User) error {
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return appErr.New(appErr.CodeNotFound, "user not found")
		}
		return appErr.Wrap(err, appErr.CodeInternal, "get user by name failed")
	}
	return nil
}

// List returns one page of users ordered newest first, together with the
// total count of the filtered set before pagination.
func (r *userRepository) List(ctx context.Context, q ListUsersQuery) ([]models.User, int64, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{})

	if q.Status != "" {
		tx = tx.Where("status = ?", q.Status)
	}
	if q.Name != "" {
		tx = tx.Where("name LIKE ?", "%"+q.Name+"%")
	}
	if q.Role != "" {
		tx = tx.Where("role LIKE ?", "%"+q.Role+"%")
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "count users failed")
	}

	var users []models.User
	err := tx.Order("created_at DESC").Offset(q.Offset).Limit(q.Limit).Find(&users).Error
	if err != nil {
		return nil, 0, appErr.Wrap(err, appErr.CodeInternal, "list users failed")
	}
	return users, total, nil
}
