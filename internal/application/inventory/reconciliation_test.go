package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ReconciliationSuite catálogo base: A (original, 20), B (10), C (15); 5 unidades de cada uno
// y una venta abierta de 1 A por 20.
type ReconciliationSuite struct {
	suite.Suite
	f    *fixture
	ctx  context.Context
	sale *entity.Transaction
}

func TestReconciliationSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationSuite))
}

func (s *ReconciliationSuite) SetupTest() {
	s.ctx = context.Background()
	s.f = newFixture()
	s.seed()
}

func (s *ReconciliationSuite) seed() {
	t := s.T()
	s.f.product(t, "A", "Camisa", "20", 0)
	s.f.product(t, "B", "Medias", "10", 0)
	s.f.product(t, "C", "Gorra", "15", 0)
	s.f.buy(t, "A", 5)
	s.f.buy(t, "B", 5)
	s.f.buy(t, "C", 5)
	s.sale = s.f.sell(t, "A", 1, "20")
}

func (s *ReconciliationSuite) exchange(lines ...inventory.ExchangeLine) (*inventory.ExchangeResult, error) {
	return s.f.recon.RegisterExchange(s.ctx, inventory.ExchangeInput{
		OutboundID: s.sale.ID, Lines: lines, RecordedBy: testUser,
	})
}

func (s *ReconciliationSuite) saleState() *entity.Transaction {
	got, err := s.f.ledger.GetByID(s.ctx, s.sale.ID)
	s.Require().NoError(err)
	return got
}

// ──────────────────────────────────────────────────────────────────────────────
// Devoluciones
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 3: la devolución repone el stock y la venta queda resuelta; una segunda se rechaza.
func (s *ReconciliationSuite) TestReturn_ReponeStockYResuelve() {
	res, err := s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: s.sale.ID, RecordedBy: testUser})
	s.Require().NoError(err)

	s.Equal(entity.KindReturn, res.Return.Kind)
	s.Equal(s.sale.ProductID, res.Return.ProductID)
	s.Equal(s.sale.Quantity, res.Return.Quantity)
	s.True(res.Return.LineValue.Equal(s.sale.LineValue))
	s.Equal(s.sale.ID, *res.Return.LinkedTransactionID)
	s.Equal("Cliente", res.Return.Counterparty)
	s.Equal(5, s.f.onHand(s.T(), "A"))
	s.True(s.saleState().Resolved())

	_, err = s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: s.sale.ID, RecordedBy: testUser})
	s.ErrorIs(err, domain.ErrAlreadyResolved)
	s.Equal(5, s.f.onHand(s.T(), "A"))
}

func (s *ReconciliationSuite) TestReturn_ErroresDeEstado() {
	_, err := s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: "no-existe", RecordedBy: testUser})
	s.ErrorIs(err, domain.ErrNotFound)

	purchases, err := s.f.ledger.List(s.ctx, repository.TransactionFilter{Kind: entity.KindInbound})
	s.Require().NoError(err)
	_, err = s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: purchases[0].ID, RecordedBy: testUser})
	s.ErrorIs(err, domain.ErrWrongKind)

	_, err = s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: "", RecordedBy: ""})
	s.ErrorIs(err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Cambios
// ──────────────────────────────────────────────────────────────────────────────

// Escenario 5: cambio exacto 1 A (20) por 2 B (10 c/u).
func (s *ReconciliationSuite) TestExchange_Exacto() {
	res, err := s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 2})
	s.Require().NoError(err)

	s.Equal(entity.KindExchangeOut, res.ExchangeOut.Kind)
	s.Equal("A", res.ExchangeOut.ProductID)
	s.True(res.ExchangeOut.LineValue.Equal(decimal.NewFromInt(20)))
	s.Require().Len(res.ExchangeIn, 1)
	s.Equal(entity.KindExchangeIn, res.ExchangeIn[0].Kind)
	s.True(res.ExchangeIn[0].LineValue.Equal(decimal.NewFromInt(20)))
	s.Equal(res.GroupID, *res.ExchangeOut.GroupID)
	s.Equal(res.GroupID, *res.ExchangeIn[0].GroupID)
	s.Equal(s.sale.ID, *res.ExchangeIn[0].LinkedTransactionID)

	s.Equal(5, s.f.onHand(s.T(), "A"), "el artículo original vuelve a bodega")
	s.Equal(3, s.f.onHand(s.T(), "B"), "los artículos nuevos salen de bodega")
	s.True(s.saleState().Resolved())

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 2})
	s.ErrorIs(err, domain.ErrAlreadyResolved)
}

func (s *ReconciliationSuite) TestExchange_VariasLineas() {
	// 20 = 1 C (15) + 1 D (5)
	s.f.product(s.T(), "D", "Pañuelo", "5", 0)
	s.f.buy(s.T(), "D", 2)
	res, err := s.exchange(
		inventory.ExchangeLine{ProductID: "C", Quantity: 1},
		inventory.ExchangeLine{ProductID: "D", Quantity: 1},
	)
	s.Require().NoError(err)
	s.Len(res.ExchangeIn, 2)
	s.Equal(4, s.f.onHand(s.T(), "C"))
	s.Equal(1, s.f.onHand(s.T(), "D"))
}

// Escenario 4: déficit de 5; nada se escribe y la venta sigue abierta.
func (s *ReconciliationSuite) TestExchange_Deficit() {
	before := s.f.ledgerLen(s.T())
	_, err := s.exchange(inventory.ExchangeLine{ProductID: "C", Quantity: 1})
	s.Require().Error(err)
	s.ErrorIs(err, domain.ErrExchangeDeficit)

	var mismatch *domain.ExchangeMismatchError
	s.Require().True(errors.As(err, &mismatch))
	s.Equal(domain.MismatchDeficit, mismatch.Kind)
	s.True(mismatch.Amount.Equal(decimal.NewFromInt(5)))

	s.Equal(before, s.f.ledgerLen(s.T()))
	s.False(s.saleState().Resolved())
	s.Equal(5, s.f.onHand(s.T(), "C"))
}

func (s *ReconciliationSuite) TestExchange_Exceso() {
	_, err := s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 3})
	s.ErrorIs(err, domain.ErrExchangeExcess)

	var mismatch *domain.ExchangeMismatchError
	s.Require().True(errors.As(err, &mismatch))
	s.True(mismatch.Amount.Equal(decimal.NewFromInt(10)))
	s.False(s.saleState().Resolved())
}

func (s *ReconciliationSuite) TestExchange_LineasInvalidas() {
	_, err := s.exchange()
	s.ErrorIs(err, domain.ErrEmptyExchange)

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 0})
	s.ErrorIs(err, domain.ErrEmptyExchange)

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "", Quantity: 1})
	s.ErrorIs(err, domain.ErrEmptyExchange)

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "A", Quantity: 1})
	s.ErrorIs(err, domain.ErrDuplicateProductInOriginal)

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "Z", Quantity: 1})
	s.ErrorIs(err, domain.ErrNotFound)

	s.False(s.saleState().Resolved())
}

// Líneas repetidas del mismo producto se suman para verificar el stock.
func (s *ReconciliationSuite) TestExchange_StockInsuficienteEnLineaNueva() {
	s.f.product(s.T(), "E", "Cinturón", "10", 0)
	s.f.buy(s.T(), "E", 1)
	before := s.f.ledgerLen(s.T())

	_, err := s.exchange(
		inventory.ExchangeLine{ProductID: "E", Quantity: 1},
		inventory.ExchangeLine{ProductID: "E", Quantity: 1},
	)
	s.Require().Error(err)
	var insufficient *domain.InsufficientStockError
	s.Require().True(errors.As(err, &insufficient))
	s.Equal("E", insufficient.ProductID)
	s.Equal(1, insufficient.OnHand)
	s.Equal(2, insufficient.Requested)

	s.Equal(before, s.f.ledgerLen(s.T()))
	s.Equal(4, s.f.onHand(s.T(), "A"))
	s.False(s.saleState().Resolved())
}

// Atomicidad: un fallo después de escribir EXCHANGE_OUT deshace todo el grupo.
func (s *ReconciliationSuite) TestExchange_FalloTrasExchangeOut_NoDejaRastro() {
	f := newFixtureWithRunner(func(inner inventory.TxRunner) inventory.TxRunner {
		return failingRunner{inner: inner, failAfter: entity.KindExchangeOut}
	})
	s.f = f
	s.seed()

	before, err := f.projector.OnHandAll(s.ctx)
	s.Require().NoError(err)
	ledgerBefore := f.ledgerLen(s.T())

	_, err = s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 2})
	s.ErrorIs(err, errInjected)

	after, err := f.projector.OnHandAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(before, after)
	s.Equal(ledgerBefore, f.ledgerLen(s.T()))
	s.False(s.saleState().Resolved())

	drift, err := f.projector.Verify(s.ctx)
	s.Require().NoError(err)
	s.Empty(drift)
}

// A lo sumo una conciliación por venta aun con devolución y cambio simultáneos.
func (s *ReconciliationSuite) TestConciliacionConcurrente_UnaGana() {
	const workers = 10
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = s.f.recon.RegisterReturn(s.ctx, inventory.ReturnInput{OutboundID: s.sale.ID, RecordedBy: testUser})
				return
			}
			_, errs[i] = s.exchange(inventory.ExchangeLine{ProductID: "B", Quantity: 2})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		s.ErrorIs(err, domain.ErrAlreadyResolved)
	}
	s.Equal(1, wins)

	lines, err := s.f.ledger.ListByLinked(s.ctx, s.sale.ID)
	s.Require().NoError(err)
	resolving := 0
	for _, l := range lines {
		if l.Kind.Resolves() {
			resolving++
		}
	}
	s.Equal(1, resolving)
	s.Equal(5, s.f.onHand(s.T(), "A"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cotización sin efectos
// ──────────────────────────────────────────────────────────────────────────────

func (s *ReconciliationSuite) TestQuote() {
	q, err := s.f.recon.Quote(s.ctx, s.sale.ID, []inventory.ExchangeLine{{ProductID: "C", Quantity: 1}})
	s.Require().NoError(err)
	s.Equal(domaininv.ExchangeDeficit, q.Status)
	s.True(q.Difference.Equal(decimal.NewFromInt(-5)))
	s.True(q.Original.Equal(decimal.NewFromInt(20)))
	s.Require().Len(q.Lines, 1)
	s.True(q.Lines[0].UnitPrice.Equal(decimal.NewFromInt(15)))

	q, err = s.f.recon.Quote(s.ctx, s.sale.ID, []inventory.ExchangeLine{{ProductID: "B", Quantity: 2}})
	s.Require().NoError(err)
	s.Equal(domaininv.ExchangeExact, q.Status)

	s.False(s.saleState().Resolved(), "cotizar no concilia")
	s.Equal(5, s.f.onHand(s.T(), "B"))
}
