package memory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner transacciones serializadas sobre el Store: fn trabaja contra un overlay que
// se publica solo si fn termina sin error.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// Run mantiene el Store bloqueado en escritura mientras fn se ejecuta.
// Los repositorios de catálogo no participan: no llamarlos dentro de fn.
func (r *TxRunner) Run(ctx context.Context, fn func(
	txRepo repository.TransactionRepository,
	stockRepo repository.StockRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o := newOverlay(r.s)
	txRepo := &TransactionRepo{s: r.s, ov: o}
	stockRepo := &StockRepo{s: r.s, ov: o}

	if err := fn(txRepo, stockRepo); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	o.commit()
	return nil
}
