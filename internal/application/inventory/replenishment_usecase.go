package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ReplenishmentUseCase lista de productos en o bajo su umbral de alerta con la cantidad sugerida a reponer.
// Prioriza por unidades vendidas recientemente según el libro.
type ReplenishmentUseCase struct {
	projector *Projector
	ledger    repository.TransactionRepository
	window    time.Duration
}

// NewReplenishmentUseCase construye el caso de uso de reposición (ventana de ventas de 90 días).
func NewReplenishmentUseCase(projector *Projector, ledger repository.TransactionRepository) *ReplenishmentUseCase {
	return &ReplenishmentUseCase{projector: projector, ledger: ledger, window: 90 * 24 * time.Hour}
}

// GenerateReplenishmentList devuelve los productos con BelowAlert ordenados por ventas netas recientes
// y luego por déficit frente al umbral. Stock ideal = umbral * 1.5 (redondeado hacia arriba).
func (uc *ReplenishmentUseCase) GenerateReplenishmentList(ctx context.Context) ([]dto.ReplenishmentSuggestionDTO, error) {
	levels, err := uc.projector.Inventory(ctx)
	if err != nil {
		return nil, err
	}
	sold, err := uc.netUnitsSold(ctx, time.Now().UTC().Add(-uc.window))
	if err != nil {
		return nil, err
	}

	suggestions := make([]dto.ReplenishmentSuggestionDTO, 0)
	for _, lvl := range levels {
		if !lvl.BelowAlert {
			continue
		}
		ideal := int(decimal.NewFromInt(int64(lvl.AlertThreshold)).Mul(decimal.RequireFromString("1.5")).Ceil().IntPart())
		suggested := ideal - lvl.Quantity
		if suggested < 0 {
			suggested = 0
		}
		suggestions = append(suggestions, dto.ReplenishmentSuggestionDTO{
			ProductID:           lvl.ProductID,
			ProductName:         lvl.Name,
			CurrentStock:        lvl.Quantity,
			AlertThreshold:      lvl.AlertThreshold,
			IdealStock:          ideal,
			SuggestedOrderQty:   suggested,
			UnitPrice:           lvl.UnitPrice,
			EstimatedValue:      lvl.UnitPrice.Mul(decimal.NewFromInt(int64(suggested))),
			UnitsSoldLast90Days: sold[lvl.ProductID],
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.UnitsSoldLast90Days != b.UnitsSoldLast90Days {
			return a.UnitsSoldLast90Days > b.UnitsSoldLast90Days
		}
		return a.AlertThreshold-a.CurrentStock > b.AlertThreshold-b.CurrentStock
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}

// netUnitsSold ventas menos devoluciones y cambios (el artículo original vuelve) desde since.
func (uc *ReplenishmentUseCase) netUnitsSold(ctx context.Context, since time.Time) (map[string]int, error) {
	txs, err := uc.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sold := make(map[string]int)
	for _, t := range txs {
		if t.RecordedAt.Before(since) {
			continue
		}
		switch t.Kind {
		case entity.KindOutbound, entity.KindExchangeIn:
			sold[t.ProductID] += t.Quantity
		case entity.KindReturn, entity.KindExchangeOut:
			sold[t.ProductID] -= t.Quantity
		}
	}
	return sold, nil
}
