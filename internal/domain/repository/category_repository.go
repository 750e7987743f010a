package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CategoryRepository define el puerto de persistencia para Category (DIP).
type CategoryRepository interface {
	// Create devuelve domain.ErrDuplicate si el ID o el código ya existen.
	Create(ctx context.Context, category *entity.Category) error
	GetByID(ctx context.Context, id string) (*entity.Category, error)
	GetByCode(ctx context.Context, code string) (*entity.Category, error)
	// List ordena por código.
	List(ctx context.Context) ([]*entity.Category, error)
}
