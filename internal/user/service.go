package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/civic-complaints/internal"
	"golang.org/x/crypto/bcrypt"
)

type RepositoryAPI interface {
	// Create inserts the user, returning ErrDuplicateEmail when the email is taken.
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type Service struct {
	repo       RepositoryAPI
	logger     *slog.Logger
	bcryptCost int
}

func NewService(repo RepositoryAPI, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:       repo,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	return s.create(ctx, dto, internal.RoleCitizen)
}

// CreateAdmin bypasses signup to provision an administrator. Used by the seeder.
func (s *Service) CreateAdmin(ctx context.Context, dto RegisterDTO) (*User, error) {
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	return s.create(ctx, dto, internal.RoleAdmin)
}

func (s *Service) create(ctx context.Context, dto RegisterDTO, role string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("failed to hash password", err)
	}

	u := &User{
		Name:         dto.Name,
		Email:        dto.Email,
		PasswordHash: string(hash),
		Phone:        dto.Phone,
		Address:      dto.Address,
		Role:         role,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Warn("failed to create user", "email", dto.Email, "error", err)
		return nil, err
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", role)
	return u, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.GetByEmail(ctx, email)
}
