package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// CategoryUseCase alta y consulta de categorías del catálogo.
type CategoryUseCase struct {
	repo repository.CategoryRepository
}

// NewCategoryUseCase construye el caso de uso.
func NewCategoryUseCase(repo repository.CategoryRepository) *CategoryUseCase {
	return &CategoryUseCase{repo: repo}
}

// Create crea una categoría. El padre, si se indica, debe existir.
func (uc *CategoryUseCase) Create(ctx context.Context, in dto.CreateCategoryRequest) (*dto.CategoryResponse, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.TrimSpace(in.Code)
	if name == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	if code == "" {
		return nil, domain.NewValidationError("code", "required")
	}
	if err := checkCategory(ctx, uc.repo, "parent_id", in.ParentID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	category := &entity.Category{
		ID:        uuid.New().String(),
		ParentID:  in.ParentID,
		Name:      name,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	return toCategoryResponse(category), nil
}

// List todas las categorías por código.
func (uc *CategoryUseCase) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	list, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.CategoryResponse, 0, len(list))
	for _, c := range list {
		out = append(out, *toCategoryResponse(c))
	}
	return out, nil
}

// checkCategory vacío = sin categoría; cualquier otro valor debe existir.
func checkCategory(ctx context.Context, repo repository.CategoryRepository, field, id string) error {
	if id == "" {
		return nil
	}
	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.NewValidationError(field, "exists")
	}
	return nil
}

func toCategoryResponse(c *entity.Category) *dto.CategoryResponse {
	return &dto.CategoryResponse{
		ID:        c.ID,
		ParentID:  c.ParentID,
		Name:      c.Name,
		Code:      c.Code,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
