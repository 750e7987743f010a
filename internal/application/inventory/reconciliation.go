package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ReconciliationUseCase devoluciones y cambios contra una venta abierta.
// Cada venta se concilia como máximo una vez; un cambio debe conservar exactamente el valor de la venta.
type ReconciliationUseCase struct {
	txRunner TxRunner
	ledger   repository.TransactionRepository
	catalog  repository.ProductCatalog
	locks    *KeyLocker
	events   EventPublisher
	log      zerolog.Logger
}

// NewReconciliationUseCase construye el motor de conciliación. ledger es el repositorio fuera de transacción
// usado para las validaciones previas. events puede ser nil.
func NewReconciliationUseCase(
	txRunner TxRunner,
	ledger repository.TransactionRepository,
	catalog repository.ProductCatalog,
	locks *KeyLocker,
	events EventPublisher,
	log zerolog.Logger,
) *ReconciliationUseCase {
	if events == nil {
		events = NopPublisher{}
	}
	return &ReconciliationUseCase{
		txRunner: txRunner,
		ledger:   ledger,
		catalog:  catalog,
		locks:    locks,
		events:   events,
		log:      log,
	}
}

// ReturnInput devolución total de una venta. Counterparty vacío toma el de la venta.
type ReturnInput struct {
	OutboundID   string
	RecordedBy   string
	Counterparty string
}

// ReturnResult movimiento de devolución confirmado.
type ReturnResult struct {
	GroupID string
	Return  *entity.Transaction
}

// ExchangeLine artículo nuevo entregado en un cambio.
type ExchangeLine struct {
	ProductID string
	Quantity  int
}

// ExchangeInput cambio de una venta por otros artículos del mismo valor total.
type ExchangeInput struct {
	OutboundID   string
	Lines        []ExchangeLine
	RecordedBy   string
	Counterparty string
}

// ExchangeResult líneas confirmadas de un cambio.
type ExchangeResult struct {
	GroupID     string
	ExchangeOut *entity.Transaction
	ExchangeIn  []*entity.Transaction
}

// PricedLine línea con el precio del catálogo resuelto al validar.
type PricedLine struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	LineValue decimal.Decimal
}

// ExchangeQuote comparación sin efectos de un cambio propuesto.
type ExchangeQuote struct {
	Outbound   *entity.Transaction
	Lines      []PricedLine
	Original   decimal.Decimal
	Proposed   decimal.Decimal
	Difference decimal.Decimal // Proposed - Original
	Status     domaininv.ExchangeStatus
}

// RegisterReturn registra la devolución de la venta: misma cantidad y valor, y la marca como resuelta
// en la misma transacción.
func (uc *ReconciliationUseCase) RegisterReturn(ctx context.Context, input ReturnInput) (*ReturnResult, error) {
	if err := validateReconciliation(input.OutboundID, input.RecordedBy); err != nil {
		return nil, err
	}
	sale, err := uc.loadOpenSale(ctx, uc.ledger.GetByID, input.OutboundID)
	if err != nil {
		uc.log.Debug().Err(err).Str("outbound_id", input.OutboundID).Msg("devolución rechazada")
		return nil, err
	}

	unlock, err := uc.locks.Lock(ctx, TxnKey(sale.ID), ProductKey(sale.ProductID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	groupID := uuid.New().String()
	var ret *entity.Transaction
	var levels map[string]int
	err = uc.txRunner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		// Revalida bajo bloqueo: otra conciliación pudo confirmarse después de la validación previa
		current, err := uc.loadOpenSale(ctx, txRepo.GetForUpdate, sale.ID)
		if err != nil {
			return err
		}
		ret = &entity.Transaction{
			Kind:                entity.KindReturn,
			ProductID:           current.ProductID,
			Quantity:            current.Quantity,
			LineValue:           current.LineValue,
			Counterparty:        counterpartyOr(input.Counterparty, current.Counterparty),
			RecordedBy:          input.RecordedBy,
			LinkedTransactionID: &current.ID,
			GroupID:             &groupID,
		}
		levels, err = commitLines(ctx, txRepo, stockRepo, []*entity.Transaction{ret})
		if err != nil {
			return err
		}
		return txRepo.MarkResolved(ctx, current.ID)
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("outbound_id", sale.ID).Msg("devolución no confirmada")
		return nil, err
	}

	uc.log.Info().
		Str("transaction_id", ret.ID).
		Str("kind", string(ret.Kind)).
		Str("product_id", ret.ProductID).
		Str("outbound_id", sale.ID).
		Msg("devolución registrada")
	uc.events.Publish(StockEvent{
		Kind:           "return",
		GroupID:        groupID,
		TransactionIDs: []string{ret.ID},
		Levels:         levels,
		Seq:            ret.Seq,
		At:             ret.RecordedAt,
	})
	return &ReturnResult{GroupID: groupID, Return: ret}, nil
}

// RegisterExchange valida el cambio completo antes de escribir y luego confirma en una sola transacción
// la salida del artículo original (EXCHANGE_OUT), una EXCHANGE_IN por línea y la resolución de la venta.
func (uc *ReconciliationUseCase) RegisterExchange(ctx context.Context, input ExchangeInput) (*ExchangeResult, error) {
	if err := validateReconciliation(input.OutboundID, input.RecordedBy); err != nil {
		return nil, err
	}
	quote, err := uc.quote(ctx, input.OutboundID, input.Lines)
	if err != nil {
		uc.log.Debug().Err(err).Str("outbound_id", input.OutboundID).Msg("cambio rechazado")
		return nil, err
	}
	if err := domaininv.ConservationError(quote.Original, quote.Proposed); err != nil {
		uc.log.Debug().Err(err).Str("outbound_id", input.OutboundID).Msg("cambio rechazado")
		return nil, err
	}

	sale := quote.Outbound
	keys := []string{TxnKey(sale.ID), ProductKey(sale.ProductID)}
	for _, l := range quote.Lines {
		keys = append(keys, ProductKey(l.ProductID))
	}
	unlock, err := uc.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	groupID := uuid.New().String()
	var out *entity.Transaction
	var ins []*entity.Transaction
	var levels map[string]int
	err = uc.txRunner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		current, err := uc.loadOpenSale(ctx, txRepo.GetForUpdate, sale.ID)
		if err != nil {
			return err
		}
		counterparty := counterpartyOr(input.Counterparty, current.Counterparty)
		out = &entity.Transaction{
			Kind:                entity.KindExchangeOut,
			ProductID:           current.ProductID,
			Quantity:            current.Quantity,
			LineValue:           current.LineValue,
			Counterparty:        counterparty,
			RecordedBy:          input.RecordedBy,
			LinkedTransactionID: &current.ID,
			GroupID:             &groupID,
		}
		lines := []*entity.Transaction{out}
		ins = make([]*entity.Transaction, 0, len(quote.Lines))
		for _, l := range quote.Lines {
			in := &entity.Transaction{
				Kind:                entity.KindExchangeIn,
				ProductID:           l.ProductID,
				Quantity:            l.Quantity,
				LineValue:           l.LineValue,
				Counterparty:        counterparty,
				RecordedBy:          input.RecordedBy,
				LinkedTransactionID: &current.ID,
				GroupID:             &groupID,
			}
			ins = append(ins, in)
			lines = append(lines, in)
		}
		levels, err = commitLines(ctx, txRepo, stockRepo, lines)
		if err != nil {
			return err
		}
		return txRepo.MarkResolved(ctx, current.ID)
	})
	if err != nil {
		uc.log.Debug().Err(err).Str("outbound_id", sale.ID).Msg("cambio no confirmado")
		return nil, err
	}

	all := append([]*entity.Transaction{out}, ins...)
	uc.log.Info().
		Str("transaction_id", out.ID).
		Str("kind", string(out.Kind)).
		Str("product_id", out.ProductID).
		Str("outbound_id", sale.ID).
		Int("lines", len(ins)).
		Msg("cambio registrado")
	uc.events.Publish(StockEvent{
		Kind:           "exchange",
		GroupID:        groupID,
		TransactionIDs: transactionIDs(all),
		Levels:         levels,
		Seq:            lastSeq(all),
		At:             out.RecordedAt,
	})
	return &ExchangeResult{GroupID: groupID, ExchangeOut: out, ExchangeIn: ins}, nil
}

// Quote evalúa un cambio sin escribir: existencia y estado de la venta, líneas válidas y comparación de valor.
// Un valor distinto al original no es error aquí; se informa en Status y Difference.
func (uc *ReconciliationUseCase) Quote(ctx context.Context, outboundID string, lines []ExchangeLine) (*ExchangeQuote, error) {
	if strings.TrimSpace(outboundID) == "" {
		return nil, domain.NewValidationError("outbound_id", "required")
	}
	return uc.quote(ctx, outboundID, lines)
}

func (uc *ReconciliationUseCase) quote(ctx context.Context, outboundID string, lines []ExchangeLine) (*ExchangeQuote, error) {
	sale, err := uc.loadOpenSale(ctx, uc.ledger.GetByID, outboundID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrEmptyExchange
	}
	for _, l := range lines {
		if l.Quantity < 1 || strings.TrimSpace(l.ProductID) == "" {
			return nil, domain.ErrEmptyExchange
		}
	}
	for _, l := range lines {
		if l.ProductID == sale.ProductID {
			return nil, domain.ErrDuplicateProductInOriginal
		}
	}

	priced := make([]PricedLine, 0, len(lines))
	proposed := decimal.Zero
	for _, l := range lines {
		price, err := uc.catalog.GetUnitPrice(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price product %s: %w", l.ProductID, err)
		}
		value := domaininv.LineValue(price, l.Quantity)
		proposed = proposed.Add(value)
		priced = append(priced, PricedLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			LineValue: value,
		})
	}
	status, diff := domaininv.CompareExchange(sale.LineValue, proposed)
	return &ExchangeQuote{
		Outbound:   sale,
		Lines:      priced,
		Original:   sale.LineValue,
		Proposed:   proposed,
		Difference: diff,
		Status:     status,
	}, nil
}

// loadOpenSale aplica las verificaciones de estado en el orden: inexistente, ya resuelta, tipo incorrecto.
func (uc *ReconciliationUseCase) loadOpenSale(
	ctx context.Context,
	get func(ctx context.Context, id string) (*entity.Transaction, error),
	id string,
) (*entity.Transaction, error) {
	t, err := get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	if t.Resolved() {
		return nil, domain.ErrAlreadyResolved
	}
	if t.Kind != entity.KindOutbound {
		return nil, domain.ErrWrongKind
	}
	return t, nil
}

func validateReconciliation(outboundID, recordedBy string) error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(outboundID) == "" {
		verr.Add("outbound_id", "required")
	}
	if strings.TrimSpace(recordedBy) == "" {
		verr.Add("recorded_by", "required")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}

func counterpartyOr(override, fallback string) string {
	if s := strings.TrimSpace(override); s != "" {
		return s
	}
	return fallback
}
