package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fixture: motor completo sobre el almacenamiento en memoria
// ──────────────────────────────────────────────────────────────────────────────

const testUser = "00000000-0000-0000-0000-000000000001"

type fixture struct {
	store     *memory.Store
	runner    inventory.TxRunner
	ledger    *memory.TransactionRepo
	stock     *memory.StockRepo
	products  *memory.ProductRepo
	locks     *inventory.KeyLocker
	events    *recordingPublisher
	movements *inventory.RegisterMovementUseCase
	recon     *inventory.ReconciliationUseCase
	projector *inventory.Projector
	queries   *inventory.LedgerQueryUseCase
}

func newFixture() *fixture {
	return newFixtureWithRunner(nil)
}

// newFixtureWithRunner wrap permite envolver el TxRunner real (inyección de fallos).
func newFixtureWithRunner(wrap func(inventory.TxRunner) inventory.TxRunner) *fixture {
	f := &fixture{store: memory.NewStore(), events: &recordingPublisher{}}
	var runner inventory.TxRunner = memory.NewTxRunner(f.store)
	if wrap != nil {
		runner = wrap(runner)
	}
	f.runner = runner
	f.ledger = memory.NewTransactionRepository(f.store)
	f.stock = memory.NewStockRepository(f.store)
	f.products = memory.NewProductRepository(f.store)
	f.locks = inventory.NewKeyLocker(5 * time.Second)
	log := zerolog.Nop()
	f.movements = inventory.NewRegisterMovementUseCase(runner, f.products, f.locks, f.events, log)
	f.recon = inventory.NewReconciliationUseCase(runner, f.ledger, f.products, f.locks, f.events, log)
	f.projector = inventory.NewProjector(runner, f.ledger, f.stock, f.products, f.events, log)
	f.queries = inventory.NewLedgerQueryUseCase(f.ledger, f.projector)
	return f
}

func (f *fixture) product(t *testing.T, id, name, price string, alert int) {
	t.Helper()
	require.NoError(t, f.products.Create(context.Background(), &entity.Product{
		ID: id, Name: name, Price: decimal.RequireFromString(price), AlertThreshold: alert,
		CreatedAt: time.Now().UTC(),
	}))
}

func (f *fixture) buy(t *testing.T, productID string, qty int) *entity.Transaction {
	t.Helper()
	tx, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "INBOUND", ProductID: productID, Quantity: qty,
		LineValue: decimal.Zero, Counterparty: "Proveedor", RecordedBy: testUser,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) sell(t *testing.T, productID string, qty int, value string) *entity.Transaction {
	t.Helper()
	tx, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "OUTBOUND", ProductID: productID, Quantity: qty,
		LineValue: decimal.RequireFromString(value), Counterparty: "Cliente", RecordedBy: testUser,
	})
	require.NoError(t, err)
	return tx
}

func (f *fixture) onHand(t *testing.T, productID string) int {
	t.Helper()
	q, err := f.projector.OnHand(context.Background(), productID)
	require.NoError(t, err)
	return q
}

func (f *fixture) ledgerLen(t *testing.T) int {
	t.Helper()
	all, err := f.ledger.ListAll(context.Background())
	require.NoError(t, err)
	return len(all)
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.StockEvent
}

func (p *recordingPublisher) Publish(ev inventory.StockEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) all() []inventory.StockEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]inventory.StockEvent(nil), p.events...)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inyección de fallos: el Append falla después de escribir un tipo concreto
// ──────────────────────────────────────────────────────────────────────────────

var errInjected = errors.New("fallo inyectado")

type failingRunner struct {
	inner     inventory.TxRunner
	failAfter entity.TransactionKind
}

func (r failingRunner) Run(ctx context.Context, fn func(repository.TransactionRepository, repository.StockRepository) error) error {
	return r.inner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		return fn(&failingLedger{TransactionRepository: txRepo, failAfter: r.failAfter}, stockRepo)
	})
}

type failingLedger struct {
	repository.TransactionRepository
	failAfter entity.TransactionKind
}

func (l *failingLedger) Append(ctx context.Context, t *entity.Transaction) error {
	if err := l.TransactionRepository.Append(ctx, t); err != nil {
		return err
	}
	if t.Kind == l.failAfter {
		return errInjected
	}
	return nil
}
