package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const maxListLimit = 500

// LedgerQueryUseCase consultas de solo lectura sobre el libro y la proyección.
type LedgerQueryUseCase struct {
	ledger    repository.TransactionRepository
	projector *Projector
}

// NewLedgerQueryUseCase construye el caso de uso.
func NewLedgerQueryUseCase(ledger repository.TransactionRepository, projector *Projector) *LedgerQueryUseCase {
	return &LedgerQueryUseCase{ledger: ledger, projector: projector}
}

// GetOnHand cantidad de un producto.
func (uc *LedgerQueryUseCase) GetOnHand(ctx context.Context, productID string) (int, error) {
	return uc.projector.OnHand(ctx, productID)
}

// GetOnHandAll cantidades de todos los productos con movimientos.
func (uc *LedgerQueryUseCase) GetOnHandAll(ctx context.Context) (map[string]int, error) {
	return uc.projector.OnHandAll(ctx)
}

// ListTransactions lista el libro en orden de confirmación. El límite se acota a maxListLimit.
func (uc *LedgerQueryUseCase) ListTransactions(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, domain.NewValidationError("kind", "oneof")
	}
	if filter.AfterSeq < 0 {
		return nil, domain.NewValidationError("after_seq", "gte=0")
	}
	if filter.Limit <= 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return uc.ledger.List(ctx, filter)
}

// ListEligibleForReconciliation ventas aún abiertas.
func (uc *LedgerQueryUseCase) ListEligibleForReconciliation(ctx context.Context) ([]*entity.Transaction, error) {
	return uc.ledger.ListEligibleForReconciliation(ctx)
}

// GetTransaction devuelve domain.ErrNotFound si no existe.
func (uc *LedgerQueryUseCase) GetTransaction(ctx context.Context, id string) (*entity.Transaction, error) {
	t, err := uc.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// ReconciliationHistory la venta y los movimientos que la concilian (vacío si sigue abierta).
func (uc *LedgerQueryUseCase) ReconciliationHistory(ctx context.Context, outboundID string) (*entity.Transaction, []*entity.Transaction, error) {
	sale, err := uc.GetTransaction(ctx, outboundID)
	if err != nil {
		return nil, nil, err
	}
	if sale.Kind != entity.KindOutbound {
		return nil, nil, domain.ErrWrongKind
	}
	lines, err := uc.ledger.ListByLinked(ctx, outboundID)
	if err != nil {
		return nil, nil, err
	}
	return sale, lines, nil
}
