package store

import (
	"context"
	"errors"
	"fmt"

	"tontine-app/internal/domain/access"
	"tontine-app/internal/domain/users"

	"gorm.io/gorm"
)

// UserStore answers the ledger's questions about accounts.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// IsActiveClient reports whether id is an enabled account with the CLIENT role.
func (s *UserStore) IsActiveClient(ctx context.Context, id uint) (bool, error) {
	var u users.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load user %d: %w", id, err)
	}
	role, err := u.AccessRole()
	if err != nil {
		return false, nil
	}
	return u.IsActive && role == access.RoleClient, nil
}
