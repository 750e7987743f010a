package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

// Escenario 1: compra 10, vende 3 -> quedan 7.
func TestRegisterMovement_CompraYVenta(t *testing.T) {
	f := newFixture()
	f.product(t, "A", "Camisa", "20", 0)

	in := f.buy(t, "A", 10)
	out := f.sell(t, "A", 3, "60")

	assert.Equal(t, entity.KindInbound, in.Kind)
	assert.Equal(t, entity.KindOutbound, out.Kind)
	assert.Equal(t, entity.StateOpen, out.State)
	assert.Greater(t, out.Seq, in.Seq)
	assert.Equal(t, testUser, out.RecordedBy)
	assert.Equal(t, 7, f.onHand(t, "A"))
}

// Escenario 2: con 7 disponibles, una venta de 8 se rechaza y no deja rastro.
func TestRegisterMovement_StockInsuficiente(t *testing.T) {
	f := newFixture()
	f.product(t, "A", "Camisa", "20", 0)
	f.buy(t, "A", 7)
	before := f.ledgerLen(t)

	_, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "sale", ProductID: "A", Quantity: 8, LineValue: decimal.NewFromInt(160),
		Counterparty: "Cliente", RecordedBy: testUser,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "A", insufficient.ProductID)
	assert.Equal(t, 7, insufficient.OnHand)
	assert.Equal(t, 8, insufficient.Requested)

	assert.Equal(t, 7, f.onHand(t, "A"))
	assert.Equal(t, before, f.ledgerLen(t))
}

func TestRegisterMovement_Validacion(t *testing.T) {
	f := newFixture()
	f.product(t, "A", "Camisa", "20", 0)

	_, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "RETURN", ProductID: "A", Quantity: 0, LineValue: decimal.NewFromInt(-1), Counterparty: "  ",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	for _, field := range []string{"kind", "quantity", "line_value", "counterparty", "recorded_by"} {
		assert.Contains(t, verr.Fields, field)
	}
	assert.Equal(t, 0, f.ledgerLen(t))
}

func TestRegisterMovement_ProductoInexistente(t *testing.T) {
	f := newFixture()
	_, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "INBOUND", ProductID: "nope", Quantity: 1, Counterparty: "Proveedor", RecordedBy: testUser,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRegisterMovement_PublicaDespuesDelCommit(t *testing.T) {
	f := newFixture()
	f.product(t, "A", "Camisa", "20", 0)
	tx := f.buy(t, "A", 4)

	events := f.events.all()
	require.Len(t, events, 1)
	assert.Equal(t, "movement", events[0].Kind)
	assert.Equal(t, []string{tx.ID}, events[0].TransactionIDs)
	assert.Equal(t, map[string]int{"A": 4}, events[0].Levels)
	assert.Equal(t, tx.Seq, events[0].Seq)

	_, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "OUTBOUND", ProductID: "A", Quantity: 5, Counterparty: "Cliente", RecordedBy: testUser,
	})
	require.Error(t, err)
	assert.Len(t, f.events.all(), 1, "un rechazo no publica nada")
}

// Propiedad de no negatividad: ventas concurrentes sobre el mismo producto nunca venden de más.
func TestRegisterMovement_VentasConcurrentes(t *testing.T) {
	f := newFixture()
	f.product(t, "A", "Camisa", "20", 0)
	f.buy(t, "A", 10)

	var ok, rejected int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.movements.RegisterMovement(context.Background(), inventory.MovementInput{
				Kind: "OUTBOUND", ProductID: "A", Quantity: 1, LineValue: decimal.NewFromInt(20),
				Counterparty: "Cliente", RecordedBy: testUser,
			})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&rejected, 1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), ok)
	assert.Equal(t, int32(15), rejected)
	assert.Equal(t, 0, f.onHand(t, "A"))

	replayed, err := f.projector.Replay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, replayed["A"])
}

// ──────────────────────────────────────────────────────────────────────────────
// Catálogo simulado con testify/mock
// ──────────────────────────────────────────────────────────────────────────────

type catalogMock struct {
	mock.Mock
}

func (m *catalogMock) Exists(ctx context.Context, productID string) (bool, error) {
	args := m.Called(ctx, productID)
	return args.Bool(0), args.Error(1)
}

func (m *catalogMock) GetUnitPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func TestRegisterMovement_ErrorDelCatalogo(t *testing.T) {
	catalog := new(catalogMock)
	boom := errors.New("catálogo caído")
	catalog.On("Exists", mock.Anything, "A").Return(false, boom).Once()

	store := memory.NewStore()
	uc := inventory.NewRegisterMovementUseCase(
		memory.NewTxRunner(store), catalog, inventory.NewKeyLocker(time.Second), nil, zerolog.Nop(),
	)
	_, err := uc.RegisterMovement(context.Background(), inventory.MovementInput{
		Kind: "INBOUND", ProductID: "A", Quantity: 1, Counterparty: "Proveedor", RecordedBy: testUser,
	})
	assert.ErrorIs(t, err, boom)
	catalog.AssertExpectations(t)
}
