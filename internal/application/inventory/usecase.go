package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RegisterMovementUseCase registra compras (INBOUND) y ventas (OUTBOUND) de forma transaccional,
// con bloqueo por producto y verificación de stock no negativo contra el último estado confirmado.
type RegisterMovementUseCase struct {
	txRunner TxRunner
	catalog  repository.ProductCatalog
	locks    *KeyLocker
	events   EventPublisher
	log      zerolog.Logger
}

// NewRegisterMovementUseCase construye el caso de uso. events puede ser nil.
func NewRegisterMovementUseCase(
	txRunner TxRunner,
	catalog repository.ProductCatalog,
	locks *KeyLocker,
	events EventPublisher,
	log zerolog.Logger,
) *RegisterMovementUseCase {
	if events == nil {
		events = NopPublisher{}
	}
	return &RegisterMovementUseCase{
		txRunner: txRunner,
		catalog:  catalog,
		locks:    locks,
		events:   events,
		log:      log,
	}
}

// MovementInput entrada para registrar un movimiento directo.
// Kind acepta INBOUND/OUTBOUND y sus alias (purchase, sale).
type MovementInput struct {
	Kind         string
	ProductID    string
	Quantity     int
	LineValue    decimal.Decimal
	Counterparty string
	RecordedBy   string
}

// RegisterMovement valida la entrada, bloquea el producto y agrega el movimiento.
// Una venta que dejaría el stock en negativo se rechaza con InsufficientStockError sin escribir nada.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInput) (*entity.Transaction, error) {
	kind, verr := validateMovement(input)
	if verr != nil {
		uc.log.Debug().Err(verr).Str("product_id", input.ProductID).Msg("movimiento rechazado")
		return nil, verr
	}

	exists, err := uc.catalog.Exists(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}

	unlock, err := uc.locks.Lock(ctx, ProductKey(input.ProductID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	t := &entity.Transaction{
		Kind:         kind,
		ProductID:    input.ProductID,
		Quantity:     input.Quantity,
		LineValue:    input.LineValue,
		Counterparty: strings.TrimSpace(input.Counterparty),
		RecordedBy:   input.RecordedBy,
	}
	if kind == entity.KindOutbound {
		t.State = entity.StateOpen
	}

	var levels map[string]int
	err = uc.txRunner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		var err error
		levels, err = commitLines(ctx, txRepo, stockRepo, []*entity.Transaction{t})
		return err
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("kind", string(kind)).Str("product_id", input.ProductID).Msg("movimiento no confirmado")
		return nil, err
	}

	uc.log.Info().
		Str("transaction_id", t.ID).
		Str("kind", string(t.Kind)).
		Str("product_id", t.ProductID).
		Int("quantity", t.Quantity).
		Msg("movimiento registrado")
	uc.events.Publish(StockEvent{
		Kind:           "movement",
		TransactionIDs: []string{t.ID},
		Levels:         levels,
		Seq:            t.Seq,
		At:             t.RecordedAt,
	})
	return t, nil
}

func validateMovement(input MovementInput) (entity.TransactionKind, error) {
	verr := &domain.ValidationError{}
	kind, ok := entity.ParseTransactionKind(input.Kind)
	if !ok || (kind != entity.KindInbound && kind != entity.KindOutbound) {
		verr.Add("kind", "oneof=INBOUND OUTBOUND")
	}
	if strings.TrimSpace(input.ProductID) == "" {
		verr.Add("product_id", "required")
	}
	if input.Quantity <= 0 {
		verr.Add("quantity", "gt=0")
	}
	if input.LineValue.IsNegative() {
		verr.Add("line_value", "gte=0")
	}
	if strings.TrimSpace(input.Counterparty) == "" {
		verr.Add("counterparty", "required")
	}
	if strings.TrimSpace(input.RecordedBy) == "" {
		verr.Add("recorded_by", "required")
	}
	if !verr.Empty() {
		return "", verr
	}
	return kind, nil
}
