package users

import (
	"time"

	"tontine-app/internal/domain/access"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

type User struct {
	ID           uint `gorm:"primaryKey"`
	Name         string
	Lastname     string
	Tel          string
	Email        string  `gorm:"not null;uniqueIndex:idx_users_email"`
	Password     *string `gorm:""`
	AuthProvider string  `gorm:"type:varchar(20);not null;default:'local'"`
	GoogleSub    *string `gorm:"uniqueIndex:idx_users_google_sub"`
	Role         string  `gorm:"type:varchar(32);not null"`

	// SFD the staff member (or client) belongs to; nil for platform admins
	SfdID    *string `gorm:"column:sfd_id;index"`
	IsActive bool    `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AccessRole parses the stored role. An unknown value is a configuration error.
func (u User) AccessRole() (access.Role, error) {
	return access.ParseRole(u.Role)
}
