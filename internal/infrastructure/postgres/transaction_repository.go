package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.TransactionRepository = (*TransactionRepo)(nil)

// appendLockKey clave del advisory lock que serializa las inserciones en el libro.
// Se mantiene hasta el commit: seq se asigna en el mismo orden en que se confirman los movimientos.
const appendLockKey int64 = 0x4c45444745520001

const transactionColumns = `id, seq, kind, product_id, quantity, line_value, counterparty, recorded_by,
	recorded_at, linked_transaction_id, group_id, COALESCE(state, '')`

// TransactionRepo libro de movimientos sobre PostgreSQL (usable con pool o tx).
type TransactionRepo struct {
	q Querier
}

// NewTransactionRepository construye el adaptador del libro. Pasar pool o tx (Querier).
func NewTransactionRepository(q Querier) *TransactionRepo {
	return &TransactionRepo{q: q}
}

// Append inserta el movimiento; seq y recorded_at los asigna la base salvo que RecordedAt venga fijado.
func (r *TransactionRepo) Append(ctx context.Context, t *entity.Transaction) error {
	if err := inventory.ValidateForAppend(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Kind == entity.KindOutbound && t.State == "" {
		t.State = entity.StateOpen
	}
	// nextval no respeta el orden de commit; con el lock ninguna transacción más nueva puede
	// confirmar un seq mayor mientras esta siga abierta
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockKey); err != nil {
		return fmt.Errorf("lock ledger append: %w", mapPgError(err))
	}
	var recordedAt any
	if !t.RecordedAt.IsZero() {
		recordedAt = t.RecordedAt.UTC()
	}
	query := `
		INSERT INTO transactions (id, kind, product_id, quantity, line_value, counterparty, recorded_by,
			recorded_at, linked_transaction_id, group_id, state)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8::timestamptz, now()), $9, $10, $11)
		RETURNING seq, recorded_at`
	err := r.q.QueryRow(ctx, query,
		t.ID, string(t.Kind), t.ProductID, t.Quantity, t.LineValue, t.Counterparty, t.RecordedBy,
		recordedAt, t.LinkedTransactionID, t.GroupID, nullIfEmpty(string(t.State)),
	).Scan(&t.Seq, &t.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			if mapped := mapPgError(err); errors.Is(mapped, domain.ErrAlreadyResolved) {
				return mapped
			}
			return fmt.Errorf("append transaction %s: %w", t.ID, domain.ErrDuplicate)
		}
		return fmt.Errorf("append transaction: %w", mapPgError(err))
	}
	t.RecordedAt = t.RecordedAt.UTC()
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila (SELECT FOR UPDATE) hasta el fin de la transacción.
func (r *TransactionRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transaction, error) {
	return r.getOne(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
}

func (r *TransactionRepo) getOne(ctx context.Context, query, id string) (*entity.Transaction, error) {
	t, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", mapPgError(err))
	}
	return t, nil
}

// MarkResolved compara y cambia OPEN -> RESOLVED. Si no afecta filas, averigua por qué.
func (r *TransactionRepo) MarkResolved(ctx context.Context, id string) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE transactions SET state = 'RESOLVED' WHERE id = $1 AND kind = 'OUTBOUND' AND state = 'OPEN'`, id)
	if err != nil {
		return fmt.Errorf("mark resolved: %w", mapPgError(err))
	}
	if cmd.RowsAffected() == 1 {
		return nil
	}
	t, err := r.GetByID(ctx, id)
	switch {
	case err != nil:
		return err
	case t == nil:
		return domain.ErrNotFound
	case t.Kind != entity.KindOutbound:
		return domain.ErrWrongKind
	default:
		return domain.ErrAlreadyResolved
	}
}

// List filtra el libro en orden de seq, desde el cursor AfterSeq.
func (r *TransactionRepo) List(ctx context.Context, filter repository.TransactionFilter) ([]*entity.Transaction, error) {
	var (
		conds = []string{"seq > $1"}
		args  = []any{filter.AfterSeq}
	)
	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		conds = append(conds, fmt.Sprintf("product_id = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY seq`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return r.list(ctx, query, args...)
}

// ListEligibleForReconciliation ventas abiertas.
func (r *TransactionRepo) ListEligibleForReconciliation(ctx context.Context) ([]*entity.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE kind = 'OUTBOUND' AND state = 'OPEN' ORDER BY seq`)
}

// ListByLinked movimientos que concilian la venta, en orden de seq.
func (r *TransactionRepo) ListByLinked(ctx context.Context, outboundID string) ([]*entity.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions
		WHERE linked_transaction_id = $1 ORDER BY seq`, outboundID)
}

// ListAll libro completo para reproducción.
func (r *TransactionRepo) ListAll(ctx context.Context) ([]*entity.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Transaction, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", mapPgError(err))
	}
	defer rows.Close()
	list := make([]*entity.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", mapPgError(err))
	}
	return list, nil
}

func scanTransaction(row pgx.Row) (*entity.Transaction, error) {
	var (
		t     entity.Transaction
		kind  string
		state string
	)
	err := row.Scan(&t.ID, &t.Seq, &kind, &t.ProductID, &t.Quantity, &t.LineValue, &t.Counterparty,
		&t.RecordedBy, &t.RecordedAt, &t.LinkedTransactionID, &t.GroupID, &state)
	if err != nil {
		return nil, err
	}
	t.Kind = entity.TransactionKind(kind)
	t.State = entity.ResolutionState(state)
	t.RecordedAt = t.RecordedAt.UTC()
	return &t, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
