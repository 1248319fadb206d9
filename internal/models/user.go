package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles assignable to a user. Role is set at creation and is not mutable
// through the generic profile update.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// Lifecycle states. Locked accounts stay readable and updatable through
// administrative flows but cannot complete a login.
const (
	StatusActive = "active"
	StatusLocked = "locked"
)

// User represents one platform account. Name is unique across non-deleted
// rows; PasswordHash only ever holds the output of the password hasher.
type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name         string         `gorm:"uniqueIndex;not null" json:"name" validate:"required"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         string         `gorm:"not null;default:user" json:"role"`
	Status       string         `gorm:"not null;default:active" json:"status"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns an ID and defaults when the database does not.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	if u.Status == "" {
		u.Status = StatusActive
	}
	return nil
}

// Locked reports whether the account is barred from logging in.
func (u *User) Locked() bool { return u.Status == StatusLocked }
