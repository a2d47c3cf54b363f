package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID                  string     `gorm:"column:id;type:uuid;primaryKey"`
	Username            string     `gorm:"column:username;uniqueIndex;not null"`
	Email               string     `gorm:"column:email;uniqueIndex;not null"`
	FullName            string     `gorm:"column:full_name;not null"`
	Password            string     `gorm:"column:password;not null"`
	Avatar              string     `gorm:"column:avatar;not null"`
	CoverImage          string     `gorm:"column:cover_image;not null;default:''"`
	RefreshTokenHash    *string    `gorm:"column:refresh_token_hash;default:null"`
	RefreshTokenExpires *time.Time `gorm:"column:refresh_token_expires_at;default:null"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate assigns the immutable id.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasRefreshToken reports whether a session is currently recorded for the user.
func (u *User) HasRefreshToken() bool {
	return u.RefreshTokenHash != nil && *u.RefreshTokenHash != ""
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
