package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ProductCatalog lo único que el libro necesita del catálogo.
type ProductCatalog interface {
	Exists(ctx context.Context, productID string) (bool, error)
	// GetUnitPrice devuelve domain.ErrNotFound si el producto no existe.
	GetUnitPrice(ctx context.Context, productID string) (decimal.Decimal, error)
}

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	ProductCatalog
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	Update(ctx context.Context, product *entity.Product) error
	List(ctx context.Context, limit, offset int) ([]*entity.Product, error)
	ListAll(ctx context.Context) ([]*entity.Product, error)
}
