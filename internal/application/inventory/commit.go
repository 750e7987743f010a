package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// commitLines aplica un grupo de movimientos dentro de la transacción en curso:
// bloquea las filas de stock en orden ascendente de producto, verifica que ninguna quede negativa,
// actualiza la proyección y agrega las líneas al libro en el orden recibido.
// Devuelve la cantidad resultante de cada producto tocado.
func commitLines(
	ctx context.Context,
	txRepo repository.TransactionRepository,
	stockRepo repository.StockRepository,
	lines []*entity.Transaction,
) (map[string]int, error) {
	delta := make(map[string]int)
	for _, l := range lines {
		delta[l.ProductID] += domaininv.SignedQuantity(l.Kind, l.Quantity)
	}
	products := make([]string, 0, len(delta))
	for id := range delta {
		products = append(products, id)
	}
	sort.Strings(products)

	// Bloquea todas las filas antes de modificar cualquiera
	stocks := make(map[string]*entity.Stock, len(products))
	for _, id := range products {
		s, err := stockRepo.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if s.Quantity+delta[id] < 0 {
			return nil, &domain.InsufficientStockError{ProductID: id, OnHand: s.Quantity, Requested: -delta[id]}
		}
		stocks[id] = s
	}

	now := time.Now().UTC()
	levels := make(map[string]int, len(products))
	for _, id := range products {
		s := stocks[id]
		s.Quantity += delta[id]
		s.UpdatedAt = now
		if err := stockRepo.Upsert(ctx, s); err != nil {
			return nil, err
		}
		levels[id] = s.Quantity
	}
	for _, l := range lines {
		if err := txRepo.Append(ctx, l); err != nil {
			return nil, err
		}
	}
	return levels, nil
}

func transactionIDs(lines []*entity.Transaction) []string {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
	}
	return ids
}

func lastSeq(lines []*entity.Transaction) int64 {
	var seq int64
	for _, l := range lines {
		if l.Seq > seq {
			seq = l.Seq
		}
	}
	return seq
}
