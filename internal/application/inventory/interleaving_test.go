package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Cambios con conjuntos de productos que se cruzan, devoluciones que compiten por la misma venta,
// ventas y compras nuevas, todo a la vez. Al final la proyección tiene que coincidir con el libro.
func TestInterleaving_CambiosCruzadosYVentas(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	prices := map[string]string{"A": "20", "B": "10", "C": "10", "D": "20"}
	for id, price := range prices {
		f.product(t, id, "prod-"+id, price, 0)
		f.buy(t, id, 40)
	}

	// venta -> líneas de cambio del mismo valor; los conjuntos se solapan en A, C y D
	type plan struct {
		sale  *entity.Transaction
		lines []inventory.ExchangeLine
	}
	var plans []plan
	for i := 0; i < 8; i++ {
		plans = append(plans,
			plan{f.sell(t, "A", 1, "20"), []inventory.ExchangeLine{{ProductID: "C", Quantity: 1}, {ProductID: "B", Quantity: 1}}},
			plan{f.sell(t, "D", 1, "20"), []inventory.ExchangeLine{{ProductID: "A", Quantity: 1}}},
			plan{f.sell(t, "B", 2, "20"), []inventory.ExchangeLine{{ProductID: "D", Quantity: 1}}},
			plan{f.sell(t, "C", 2, "20"), []inventory.ExchangeLine{{ProductID: "D", Quantity: 1}}},
		)
	}

	var wg sync.WaitGroup
	unexpected := func(op string, err error) {
		if err != nil && !errors.Is(err, domain.ErrAlreadyResolved) && !errors.Is(err, domain.ErrInsufficientStock) {
			t.Errorf("%s: error inesperado: %v", op, err)
		}
	}
	for i, p := range plans {
		wg.Add(2)
		go func(p plan) {
			defer wg.Done()
			_, err := f.recon.RegisterExchange(ctx, inventory.ExchangeInput{
				OutboundID: p.sale.ID, Lines: p.lines, RecordedBy: testUser,
			})
			unexpected("cambio", err)
		}(p)
		go func(i int, p plan) {
			defer wg.Done()
			if i%2 == 0 {
				_, err := f.recon.RegisterReturn(ctx, inventory.ReturnInput{OutboundID: p.sale.ID, RecordedBy: testUser})
				unexpected("devolución", err)
				return
			}
			id := []string{"A", "B", "C", "D"}[i%4]
			kind := "OUTBOUND"
			if i%3 == 0 {
				kind = "INBOUND"
			}
			_, err := f.movements.RegisterMovement(ctx, inventory.MovementInput{
				Kind: kind, ProductID: id, Quantity: 1, LineValue: decimal.RequireFromString(prices[id]),
				Counterparty: "Cliente", RecordedBy: testUser,
			})
			unexpected("movimiento", err)
		}(i, p)
	}
	wg.Wait()

	for _, p := range plans {
		lines, err := f.ledger.ListByLinked(ctx, p.sale.ID)
		require.NoError(t, err)
		resolutions := 0
		for _, l := range lines {
			if l.Kind.Resolves() {
				resolutions++
			}
		}
		assert.Equal(t, 1, resolutions, "venta %s conciliada una sola vez", p.sale.ID)
	}

	incremental, err := f.projector.OnHandAll(ctx)
	require.NoError(t, err)
	replayed, err := f.projector.Replay(ctx)
	require.NoError(t, err)
	assert.Equal(t, replayed, incremental)
	for id, q := range incremental {
		assert.GreaterOrEqual(t, q, 0, id)
	}

	drift, err := f.projector.Verify(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}
