package category

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/civic-complaints/internal"
	categoryDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*categoryDatamodel.ComplaintCategory, error)
	GetByName(ctx context.Context, name string) (*categoryDatamodel.ComplaintCategory, error)
	Create(ctx context.Context, category *categoryDatamodel.ComplaintCategory) error
	SetActive(ctx context.Context, id int64, active bool) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetAllCategories lists active categories by name.
func (s *Service) GetAllCategories(ctx context.Context) ([]CategoryResponse, error) {
	dataCategories, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, err
	}

	responses := make([]CategoryResponse, 0, len(dataCategories))
	for _, dataCategory := range dataCategories {
		domainCategory := FromDataModel(dataCategory)
		if domainCategory.IsActive {
			responses = append(responses, domainCategory.ToResponse())
		}
	}

	s.logger.Debug("retrieved categories", "count", len(responses))
	return responses, nil
}

func (s *Service) Create(ctx context.Context, actor internal.Actor, dto CreateCategoryDTO) (*Category, error) {
	if !actor.IsAdmin() {
		return nil, internal.ErrAccessDenied
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByName(ctx, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewConflictError("category already exists", internal.ErrCodeDuplicateCategory)
	}

	c := NewCategory(dto.Name, dto.Description)
	row := ToDataModel(c)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.Error("failed to create category", "name", dto.Name, "error", err)
		return nil, err
	}
	c.ID = row.ID

	s.logger.Info("category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) Deactivate(ctx context.Context, actor internal.Actor, id int64) error {
	if !actor.IsAdmin() {
		return internal.ErrAccessDenied
	}
	return s.repo.SetActive(ctx, id, false)
}

// EnsureDefaults creates every missing default category and reactivates none. It returns how
// many were created.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, d := range Defaults {
		existing, err := s.repo.GetByName(ctx, d.Name)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		if err := s.repo.Create(ctx, ToDataModel(NewCategory(d.Name, d.Description))); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
