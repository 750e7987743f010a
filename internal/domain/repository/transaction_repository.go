package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// TransactionFilter criterios para listar el libro. Los resultados salen en orden de confirmación (Seq).
// AfterSeq permite paginar por cursor; Limit <= 0 devuelve todo lo que quede.
// Las implementaciones garantizan que un movimiento confirmado después de una lectura tiene un Seq
// mayor que todos los ya visibles, así que el cursor nunca salta filas.
type TransactionFilter struct {
	ProductID string
	Kind      entity.TransactionKind
	AfterSeq  int64
	Limit     int
}

// TransactionRepository puerto del libro de movimientos (solo inserción).
// Usado con pool o dentro de TxRunner; las reglas de negocio se validan antes de Append.
type TransactionRepository interface {
	// Append asigna ID, Seq y RecordedAt si faltan y persiste el movimiento.
	// Dentro de TxRunner serializa las inserciones hasta el commit para que Seq siga el orden de confirmación.
	Append(ctx context.Context, tx *entity.Transaction) error
	// GetByID devuelve nil, nil si no existe.
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)
	// GetForUpdate como GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Transaction, error)
	// MarkResolved OPEN -> RESOLVED. Devuelve domain.ErrAlreadyResolved si ya estaba resuelta.
	MarkResolved(ctx context.Context, id string) error
	List(ctx context.Context, filter TransactionFilter) ([]*entity.Transaction, error)
	ListEligibleForReconciliation(ctx context.Context) ([]*entity.Transaction, error)
	ListByLinked(ctx context.Context, outboundID string) ([]*entity.Transaction, error)
	ListAll(ctx context.Context) ([]*entity.Transaction, error)
}
