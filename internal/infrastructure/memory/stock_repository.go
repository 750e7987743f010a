package memory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo proyección de cantidades en memoria.
type StockRepo struct {
	s  *Store
	ov *overlay
}

// NewStockRepository repositorio fuera de transacción.
func NewStockRepository(s *Store) *StockRepo {
	return &StockRepo{s: s}
}

// Get devuelve cantidad 0 si el producto no tiene fila.
func (r *StockRepo) Get(ctx context.Context, productID string) (*entity.Stock, error) {
	var out entity.Stock
	err := r.s.read(r.ov, func(o *overlay) error {
		if st := o.stockOf(productID); st != nil {
			out = *st
			return nil
		}
		out = entity.Stock{ProductID: productID}
		return nil
	})
	return &out, err
}

// GetForUpdate en memoria la transacción ya es exclusiva.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID string) (*entity.Stock, error) {
	return r.Get(ctx, productID)
}

// Upsert guarda la cantidad. Rechaza negativos igual que el CHECK de PostgreSQL.
func (r *StockRepo) Upsert(ctx context.Context, stock *entity.Stock) error {
	if stock.Quantity < 0 {
		return &domain.InsufficientStockError{ProductID: stock.ProductID, OnHand: 0, Requested: -stock.Quantity}
	}
	return r.s.write(r.ov, func(o *overlay) error {
		st := *stock
		if st.UpdatedAt.IsZero() {
			st.UpdatedAt = time.Now().UTC()
		}
		o.stock[st.ProductID] = &st
		return nil
	})
}

// ListAll filas ordenadas por producto.
func (r *StockRepo) ListAll(ctx context.Context) ([]*entity.Stock, error) {
	out := make([]*entity.Stock, 0)
	err := r.s.read(r.ov, func(o *overlay) error {
		for _, st := range o.allStock() {
			c := *st
			out = append(out, &c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out, err
}

// LockAll no hace nada más: TxRunner ya serializa todo el Store.
func (r *StockRepo) LockAll(ctx context.Context) error {
	return ctx.Err()
}

// ReplaceAll reemplaza la proyección completa.
func (r *StockRepo) ReplaceAll(ctx context.Context, quantities map[string]int) error {
	return r.s.write(r.ov, func(o *overlay) error {
		now := time.Now().UTC()
		o.replaced = true
		o.stock = make(map[string]*entity.Stock, len(quantities))
		for id, q := range quantities {
			if q < 0 {
				return &domain.InsufficientStockError{ProductID: id, Requested: -q}
			}
			o.stock[id] = &entity.Stock{ProductID: id, Quantity: q, UpdatedAt: now}
		}
		return nil
	})
}
