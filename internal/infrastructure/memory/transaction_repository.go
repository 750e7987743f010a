package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// TransactionRepo libro en memoria. Con ov nil cada escritura es su propia transacción.
type TransactionRepo struct {
	s  *Store
	ov *overlay
}

// NewTransactionRepository repositorio fuera de transacción.
func NewTransactionRepository(s *Store) *TransactionRepo {
	return &TransactionRepo{s: s}
}

// Append valida, asigna ID/Seq/RecordedAt y agrega el movimiento. Los campos asignados se copian en t.
// Un segundo RETURN/EXCHANGE_OUT para la misma venta se rechaza con domain.ErrAlreadyResolved.
func (r *TransactionRepo) Append(ctx context.Context, t *entity.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := inventory.ValidateForAppend(t); err != nil {
		return err
	}
	return r.s.write(r.ov, func(o *overlay) error {
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if o.tx(t.ID) != nil {
			return fmt.Errorf("append transaction %s: %w", t.ID, domain.ErrDuplicate)
		}
		if t.Kind.Resolves() {
			if _, ok := o.resolvedBy(*t.LinkedTransactionID); ok {
				return domain.ErrAlreadyResolved
			}
			o.resolved[*t.LinkedTransactionID] = t.ID
		}
		if t.RecordedAt.IsZero() {
			t.RecordedAt = time.Now().UTC()
		}
		if t.Kind == entity.KindOutbound && t.State == "" {
			t.State = entity.StateOpen
		}
		o.seq++
		t.Seq = o.seq
		stored := t.Clone()
		o.staged[stored.ID] = stored
		o.appended = append(o.appended, stored)
		return nil
	})
}

// GetByID devuelve nil, nil si no existe.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	var out *entity.Transaction
	err := r.s.read(r.ov, func(o *overlay) error {
		out = o.tx(id).Clone()
		return nil
	})
	return out, err
}

// GetForUpdate en memoria la transacción ya es exclusiva.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.GetByID(ctx, id)
}

// MarkResolved OPEN -> RESOLVED sobre una venta.
func (r *TransactionRepo) MarkResolved(ctx context.Context, id string) error {
	return r.s.write(r.ov, func(o *overlay) error {
		t := o.tx(id)
		if t == nil {
			return domain.ErrNotFound
		}
		if t.Kind != entity.KindOutbound {
			return domain.ErrWrongKind
		}
		if t.Resolved() {
			return domain.ErrAlreadyResolved
		}
		if _, ok := o.staged[id]; !ok {
			t = t.Clone()
			o.staged[id] = t
		}
		t.State = entity.StateResolved
		return nil
	})
}

// List filtra el libro en orden de confirmación.
func (r *TransactionRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	return r.collect(func(t *entity.Transaction) bool {
		return t.Seq > filter.AfterSeq &&
			(filter.ProductID == "" || t.ProductID == filter.ProductID) &&
			(filter.Kind == "" || t.Kind == filter.Kind)
	}, filter.Limit)
}

// ListEligibleForReconciliation ventas abiertas.
func (r *TransactionRepo) ListEligibleForReconciliation(ctx context.Context) ([]*entity.Transaction, error) {
	return r.collect(func(t *entity.Transaction) bool { return t.Reconcilable() }, 0)
}

// ListByLinked movimientos que concilian la venta.
func (r *TransactionRepo) ListByLinked(ctx context.Context, outboundID string) ([]*entity.Transaction, error) {
	return r.collect(func(t *entity.Transaction) bool {
		return t.LinkedTransactionID != nil && *t.LinkedTransactionID == outboundID
	}, 0)
}

// ListAll libro completo.
func (r *TransactionRepo) ListAll(ctx context.Context) ([]*entity.Transaction, error) {
	return r.collect(func(*entity.Transaction) bool { return true }, 0)
}

func (r *TransactionRepo) collect(match func(*entity.Transaction) bool, limit int) ([]*entity.Transaction, error) {
	out := make([]*entity.Transaction, 0)
	err := r.s.read(r.ov, func(o *overlay) error {
		for _, t := range o.all() {
			if !match(t) {
				continue
			}
			out = append(out, t.Clone())
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}
