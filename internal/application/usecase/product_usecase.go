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

// ProductUseCase casos de uso CRUD para el catálogo. La cantidad disponible se maneja vía el libro.
type ProductUseCase struct {
	repo       repository.ProductRepository
	categories repository.CategoryRepository
}

// NewProductUseCase construye el caso de uso. category_id se valida contra categories.
func NewProductUseCase(repo repository.ProductRepository, categories repository.CategoryRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, categories: categories}
}

// Create crea un nuevo producto.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "required")
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "gte=0")
	}
	if in.AlertThreshold < 0 {
		return nil, domain.NewValidationError("alert_threshold", "gte=0")
	}
	if err := checkCategory(ctx, uc.categories, "category_id", in.CategoryID); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:             uuid.New().String(),
		Name:           strings.TrimSpace(in.Name),
		Brand:          in.Brand,
		Size:           in.Size,
		Color:          in.Color,
		CategoryID:     in.CategoryID,
		Price:          in.Price,
		AlertThreshold: in.AlertThreshold,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza un producto. Un cambio de precio no altera el valor de movimientos ya registrados.
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.NewValidationError("name", "required")
		}
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Brand != nil {
		product.Brand = *in.Brand
	}
	if in.Size != nil {
		product.Size = *in.Size
	}
	if in.Color != nil {
		product.Color = *in.Color
	}
	if in.CategoryID != nil {
		if err := checkCategory(ctx, uc.categories, "category_id", *in.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = *in.CategoryID
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.NewValidationError("price", "gte=0")
		}
		product.Price = *in.Price
	}
	if in.AlertThreshold != nil {
		if *in.AlertThreshold < 0 {
			return nil, domain.NewValidationError("alert_threshold", "gte=0")
		}
		product.AlertThreshold = *in.AlertThreshold
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación.
func (uc *ProductUseCase) List(ctx context.Context, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:             p.ID,
		Name:           p.Name,
		Brand:          p.Brand,
		Size:           p.Size,
		Color:          p.Color,
		CategoryID:     p.CategoryID,
		Price:          p.Price,
		AlertThreshold: p.AlertThreshold,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
