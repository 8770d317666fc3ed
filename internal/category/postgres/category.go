package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/frahmantamala/civic-complaints/internal/category"
	categoryDatamodel "github.com/frahmantamala/civic-complaints/internal/core/datamodel/category"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) category.RepositoryAPI {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) GetAll(ctx context.Context) ([]*categoryDatamodel.ComplaintCategory, error) {
	var categories []*categoryDatamodel.ComplaintCategory
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

// GetByName returns nil without error when no category has that name.
func (r *CategoryRepository) GetByName(ctx context.Context, name string) (*categoryDatamodel.ComplaintCategory, error) {
	var cat categoryDatamodel.ComplaintCategory
	err := r.db.WithContext(ctx).Where("name = ?", name).Take(&cat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cat, nil
}

func (r *CategoryRepository) Create(ctx context.Context, cat *categoryDatamodel.ComplaintCategory) error {
	if err := r.db.WithContext(ctx).Create(cat).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return internal.NewConflictError("category already exists", internal.ErrCodeDuplicateCategory)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res := r.db.WithContext(ctx).Model(&categoryDatamodel.ComplaintCategory{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return fmt.Errorf("update category %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return internal.NewNotFoundError("category not found", internal.ErrCodeCategoryNotFound)
	}
	return nil
}
