package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/auth"
	userDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetCredentials(ctx context.Context, email string) (*auth.Credentials, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Select("id", "name", "email", "role", "password_hash").
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("load credentials: %w", err)
	}

	return &auth.Credentials{
		Identity:     auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role},
		PasswordHash: u.PasswordHash,
	}, nil
}

func (r *Repository) GetIdentity(ctx context.Context, userID int64) (*auth.Identity, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Select("id", "name", "email", "role").Where("id = ?", userID).Take(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &auth.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}, nil
}
