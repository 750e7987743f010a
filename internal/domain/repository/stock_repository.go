package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar la cantidad materializada por producto.
// Usado dentro de transacciones para garantizar consistencia con el libro.
type StockRepository interface {
	// Get devuelve cantidad 0 para productos sin movimientos.
	Get(ctx context.Context, productID string) (*entity.Stock, error)
	// GetForUpdate bloquea la fila (la crea en 0 si no existe) hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error)
	Upsert(ctx context.Context, stock *entity.Stock) error
	ListAll(ctx context.Context) ([]*entity.Stock, error)
	// LockAll impide escrituras sobre la proyección hasta el fin de la transacción.
	// Debe ir antes de leer el libro cuando se compara o reescribe la proyección completa.
	LockAll(ctx context.Context) error
	// ReplaceAll reemplaza la proyección completa (reconstrucción desde el libro).
	ReplaceAll(ctx context.Context, quantities map[string]int) error
}
