package service

import (
	"context"
	"strings"

	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// CategoryService is the category directory.
type CategoryService struct {
	categories repository.CategoryRepository
}

// NewCategoryService constructs the service.
func NewCategoryService(categories repository.CategoryRepository) *CategoryService {
	return &CategoryService{categories: categories}
}

// CategoryInput describes create/update payloads.
type CategoryInput struct {
	Name        string
	Description string
}

// Create registers a category.
func (s *CategoryService) Create(ctx context.Context, input CategoryInput) (*domain.Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	category := &domain.Category{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
	}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return category, nil
}

// GetByID resolves a category or reports NotFound.
func (s *CategoryService) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "category", id)
	}
	return category, nil
}

// List returns all categories.
func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return categories, nil
}

// Update merges non-empty fields into an existing category.
func (s *CategoryService) Update(ctx context.Context, id string, input CategoryInput) (*domain.Category, error) {
	category, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) != "" {
		category.Name = strings.TrimSpace(input.Name)
	}
	if input.Description != "" {
		category.Description = input.Description
	}
	if err := s.categories.Update(ctx, category); err != nil {
		return nil, storeErr(err, "category", id)
	}
	return category, nil
}

// Delete removes a category.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return storeErr(err, "category", id)
	}
	return nil
}
