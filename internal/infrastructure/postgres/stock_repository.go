package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo proyección de cantidades sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene la cantidad actual de un producto; 0 si nunca tuvo movimientos.
func (r *StockRepo) Get(ctx context.Context, productID string) (*entity.Stock, error) {
	query := `SELECT product_id, quantity, updated_at FROM stock WHERE product_id = $1`
	var s entity.Stock
	err := r.q.QueryRow(ctx, query, productID).Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ProductID: productID}, nil
		}
		return nil, fmt.Errorf("get stock: %w", mapPgError(err))
	}
	return &s, nil
}

// GetForUpdate crea la fila en 0 si falta y la bloquea (SELECT FOR UPDATE) hasta el fin de la transacción.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error) {
	_, err := r.q.Exec(ctx,
		`INSERT INTO stock (product_id, quantity) VALUES ($1, 0) ON CONFLICT (product_id) DO NOTHING`, productID)
	if err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", mapPgError(err))
	}
	query := `SELECT product_id, quantity, updated_at FROM stock WHERE product_id = $1 FOR UPDATE`
	var s entity.Stock
	if err := r.q.QueryRow(ctx, query, productID).Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get stock for update: %w", mapPgError(err))
	}
	return &s, nil
}

// Upsert inserta o actualiza la cantidad. El CHECK de la tabla rechaza negativos.
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	if stock.Quantity < 0 {
		return &domain.InsufficientStockError{ProductID: stock.ProductID, OnHand: 0, Requested: -stock.Quantity}
	}
	query := `
		INSERT INTO stock (product_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()
		RETURNING updated_at`
	if err := r.q.QueryRow(ctx, query, stock.ProductID, stock.Quantity).Scan(&stock.UpdatedAt); err != nil {
		return fmt.Errorf("upsert stock: %w", mapPgError(err))
	}
	return nil
}

// ListAll proyección completa ordenada por producto.
func (r *StockRepo) ListAll(ctx context.Context) ([]*entity.Stock, error) {
	rows, err := r.q.Query(ctx, `SELECT product_id, quantity, updated_at FROM stock ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", mapPgError(err))
	}
	defer rows.Close()
	list := make([]*entity.Stock, 0)
	for rows.Next() {
		var s entity.Stock
		if err := rows.Scan(&s.ProductID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// LockAll toma la tabla en modo EXCLUSIVE: espera a las escrituras en curso y frena las nuevas
// (FOR UPDATE e INSERT) hasta el fin de la transacción. Las lecturas simples siguen.
// Fuera de TxRunner el bloqueo se libera al terminar la sentencia.
func (r *StockRepo) LockAll(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `LOCK TABLE stock IN EXCLUSIVE MODE`); err != nil {
		return fmt.Errorf("lock stock: %w", mapPgError(err))
	}
	return nil
}

// ReplaceAll reescribe la proyección; debe llamarse dentro de TxRunner, después de LockAll
// y de leer el libro.
func (r *StockRepo) ReplaceAll(ctx context.Context, quantities map[string]int) error {
	if err := r.LockAll(ctx); err != nil {
		return err
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM stock`); err != nil {
		return fmt.Errorf("clear stock: %w", mapPgError(err))
	}
	ids := make([]string, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := r.Upsert(ctx, &entity.Stock{ProductID: id, Quantity: quantities[id]}); err != nil {
			return err
		}
	}
	return nil
}
