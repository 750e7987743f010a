package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/stock-ledger/pkg/config"
)

// Requiere una base real: LEDGER_TEST_DATABASE_URL=postgres://... go test ./internal/infrastructure/postgres/
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("LEDGER_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LEDGER_TEST_DATABASE_URL no definido")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: url, MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = postgres.Migrate(pool, zerolog.Nop())
	require.NoError(t, err)
	return pool
}

type pgEngine struct {
	products  *postgres.ProductRepo
	ledger    *postgres.TransactionRepo
	movements *inventory.RegisterMovementUseCase
	recon     *inventory.ReconciliationUseCase
	projector *inventory.Projector
}

func newPgEngine(pool *pgxpool.Pool) *pgEngine {
	runner := postgres.NewTxRunner(pool, 2*time.Second)
	products := postgres.NewProductRepository(pool)
	ledger := postgres.NewTransactionRepository(pool)
	locks := inventory.NewKeyLocker(2 * time.Second)
	log := zerolog.Nop()
	return &pgEngine{
		products:  products,
		ledger:    ledger,
		movements: inventory.NewRegisterMovementUseCase(runner, products, locks, nil, log),
		recon:     inventory.NewReconciliationUseCase(runner, ledger, products, locks, nil, log),
		projector: inventory.NewProjector(runner, ledger, postgres.NewStockRepository(pool), products, nil, log),
	}
}

func (e *pgEngine) product(t *testing.T, price string) string {
	t.Helper()
	now := time.Now().UTC()
	id := uuid.New().String()
	require.NoError(t, e.products.Create(context.Background(), &entity.Product{
		ID: id, Name: "p-" + id[:8], Price: decimal.RequireFromString(price), CreatedAt: now, UpdatedAt: now,
	}))
	return id
}

func (e *pgEngine) move(t *testing.T, kind, productID string, qty int, value string) (*entity.Transaction, error) {
	t.Helper()
	return e.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: kind, ProductID: productID, Quantity: qty, LineValue: decimal.RequireFromString(value),
		Counterparty: "contraparte", RecordedBy: "tester",
	})
}

func TestPostgres_CicloCompleto(t *testing.T) {
	e := newPgEngine(testPool(t))
	ctx := context.Background()

	a := e.product(t, "20")
	b := e.product(t, "10")
	_, err := e.move(t, "INBOUND", a, 10, "0")
	require.NoError(t, err)
	_, err = e.move(t, "INBOUND", b, 5, "0")
	require.NoError(t, err)
	sale, err := e.move(t, "OUTBOUND", a, 1, "20")
	require.NoError(t, err)
	assert.Equal(t, entity.StateOpen, sale.State)

	_, err = e.move(t, "OUTBOUND", a, 50, "1000")
	var insufficient *domain.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 9, insufficient.OnHand)

	res, err := e.recon.RegisterExchange(ctx, inventory.ExchangeInput{
		OutboundID: sale.ID, RecordedBy: "tester",
		Lines: []inventory.ExchangeLine{{ProductID: b, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, res.ExchangeIn, 1)

	qa, err := e.projector.OnHand(ctx, a)
	require.NoError(t, err)
	qb, err := e.projector.OnHand(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 10, qa)
	assert.Equal(t, 3, qb)

	_, err = e.recon.RegisterReturn(ctx, inventory.ReturnInput{OutboundID: sale.ID, RecordedBy: "tester"})
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	stored, err := e.ledger.GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved())

	drift, err := e.projector.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestPostgres_ConciliacionConcurrente(t *testing.T) {
	pool := testPool(t)
	e := newPgEngine(pool)
	// motor independiente: sin KeyLocker compartido, solo la base arbitra
	other := newPgEngine(pool)
	ctx := context.Background()

	a := e.product(t, "20")
	_, err := e.move(t, "INBOUND", a, 3, "0")
	require.NoError(t, err)
	sale, err := e.move(t, "OUTBOUND", a, 1, "20")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, eng := range []*pgEngine{e, other} {
		wg.Add(1)
		go func(i int, eng *pgEngine) {
			defer wg.Done()
			_, errs[i] = eng.recon.RegisterReturn(ctx, inventory.ReturnInput{OutboundID: sale.ID, RecordedBy: "tester"})
		}(i, eng)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, domain.IsRetryable(err) || errors.Is(err, domain.ErrAlreadyResolved), "error: %v", err)
	}
	assert.Equal(t, 1, ok)

	lines, err := e.ledger.ListByLinked(ctx, sale.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}

func TestPostgres_LibroSoloInsercion(t *testing.T) {
	pool := testPool(t)
	e := newPgEngine(pool)
	a := e.product(t, "5")
	tx, err := e.move(t, "INBOUND", a, 1, "0")
	require.NoError(t, err)

	_, err = pool.Exec(context.Background(), `UPDATE transactions SET quantity = 99 WHERE id = $1`, tx.ID)
	assert.Error(t, err)
	_, err = pool.Exec(context.Background(), `DELETE FROM transactions WHERE id = $1`, tx.ID)
	assert.Error(t, err)
}

// heldSale deja abierta una transacción que ya vendió qty de productID y bloqueó su fila de stock.
// Confirma al cerrar release; el resultado llega por el canal devuelto.
func heldSale(t *testing.T, pool *pgxpool.Pool, productID string, qty int, release <-chan struct{}) (held <-chan *entity.Transaction, done <-chan error) {
	t.Helper()
	heldCh := make(chan *entity.Transaction, 1)
	doneCh := make(chan error, 1)
	runner := postgres.NewTxRunner(pool, 5*time.Second)
	go func() {
		doneCh <- runner.Run(context.Background(), func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
			s, err := stockRepo.GetForUpdate(context.Background(), productID)
			if err != nil {
				return err
			}
			s.Quantity -= qty
			if err := stockRepo.Upsert(context.Background(), s); err != nil {
				return err
			}
			sale := &entity.Transaction{
				Kind: entity.KindOutbound, ProductID: productID, Quantity: qty,
				LineValue: decimal.NewFromInt(int64(qty)), Counterparty: "contraparte", RecordedBy: "tester",
			}
			if err := txRepo.Append(context.Background(), sale); err != nil {
				return err
			}
			heldCh <- sale
			<-release
			return nil
		})
	}()
	return heldCh, doneCh
}

// Una venta que confirma mientras se reconstruye la proyección no puede quedar fuera de ella.
func TestPostgres_RebuildConVentaEnCurso(t *testing.T) {
	pool := testPool(t)
	e := newPgEngine(pool)
	ctx := context.Background()

	a := e.product(t, "1")
	_, err := e.move(t, "INBOUND", a, 10, "0")
	require.NoError(t, err)

	release := make(chan struct{})
	held, saleDone := heldSale(t, pool, a, 5, release)
	select {
	case <-held:
	case err := <-saleDone:
		t.Fatalf("la venta terminó antes de tiempo: %v", err)
	}

	rebuilt := make(chan error, 1)
	go func() {
		_, err := e.projector.Rebuild(ctx)
		rebuilt <- err
	}()

	select {
	case err := <-rebuilt:
		t.Fatalf("la reconstrucción no esperó a la venta abierta: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	close(release)
	require.NoError(t, <-saleDone)
	require.NoError(t, <-rebuilt)

	q, err := e.projector.OnHand(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 5, q)

	drift, err := e.projector.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

// Dos inserciones sobre productos distintos confirman en orden de seq: el cursor no salta filas.
func TestPostgres_SeqSigueOrdenDeConfirmacion(t *testing.T) {
	pool := testPool(t)
	e := newPgEngine(pool)
	ctx := context.Background()

	a := e.product(t, "1")
	b := e.product(t, "1")
	_, err := e.move(t, "INBOUND", a, 5, "0")
	require.NoError(t, err)
	last, err := e.move(t, "INBOUND", b, 5, "0")
	require.NoError(t, err)

	release := make(chan struct{})
	held, firstDone := heldSale(t, pool, a, 1, release)
	first := <-held

	second := make(chan *entity.Transaction, 1)
	secondErr := make(chan error, 1)
	go func() {
		tx, err := e.move(t, "OUTBOUND", b, 1, "1")
		second <- tx
		secondErr <- err
	}()

	select {
	case <-second:
		t.Fatal("la segunda venta confirmó con la primera aún abierta")
	case <-time.After(200 * time.Millisecond):
	}

	// un lector que pagina ahora no debe ver nada después de last
	page, err := e.ledger.List(ctx, repository.TransactionFilter{AfterSeq: last.Seq})
	require.NoError(t, err)
	assert.Empty(t, page)

	close(release)
	require.NoError(t, <-firstDone)
	tx2 := <-second
	require.NoError(t, <-secondErr)
	assert.Greater(t, tx2.Seq, first.Seq)

	page, err = e.ledger.List(ctx, repository.TransactionFilter{AfterSeq: last.Seq})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, first.ID, page[0].ID)
	assert.Equal(t, tx2.ID, page[1].ID)
}

func TestPostgres_Categorias(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()
	repo := postgres.NewCategoryRepository(pool)
	now := time.Now().UTC()
	code := "C-" + uuid.New().String()[:8]
	cat := &entity.Category{ID: uuid.New().String(), Name: "Ropa", Code: code, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, cat))

	dup := *cat
	dup.ID = uuid.New().String()
	assert.ErrorIs(t, repo.Create(ctx, &dup), domain.ErrDuplicate)

	got, err := repo.GetByCode(ctx, code)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cat.ID, got.ID)

	missing, err := repo.GetByID(ctx, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, missing)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)
}
