package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Projector cantidades disponibles derivadas del libro.
// La proyección materializada se mantiene en la misma transacción que cada escritura;
// Replay/Verify/Rebuild recalculan desde cero para auditar o reparar.
type Projector struct {
	txRunner TxRunner
	ledger   repository.TransactionRepository
	stock    repository.StockRepository
	products repository.ProductRepository
	events   EventPublisher
	log      zerolog.Logger
}

// NewProjector construye el proyector. events puede ser nil.
func NewProjector(
	txRunner TxRunner,
	ledger repository.TransactionRepository,
	stock repository.StockRepository,
	products repository.ProductRepository,
	events EventPublisher,
	log zerolog.Logger,
) *Projector {
	if events == nil {
		events = NopPublisher{}
	}
	return &Projector{
		txRunner: txRunner,
		ledger:   ledger,
		stock:    stock,
		products: products,
		events:   events,
		log:      log,
	}
}

// Drift diferencia entre la proyección guardada y la reproducción del libro.
type Drift struct {
	ProductID string
	Stored    int
	Replayed  int
}

// OnHand cantidad confirmada del producto; 0 si nunca tuvo movimientos.
func (p *Projector) OnHand(ctx context.Context, productID string) (int, error) {
	s, err := p.stock.Get(ctx, productID)
	if err != nil {
		return 0, err
	}
	return s.Quantity, nil
}

// OnHandAll cantidad confirmada de cada producto con movimientos.
func (p *Projector) OnHandAll(ctx context.Context) (map[string]int, error) {
	rows, err := p.stock.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, s := range rows {
		out[s.ProductID] = s.Quantity
	}
	return out, nil
}

// Replay reproduce el libro completo. Falla con domain.ErrLedgerCorrupt si algún prefijo es negativo.
func (p *Projector) Replay(ctx context.Context) (map[string]int, error) {
	txs, err := p.ledger.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return domaininv.Replay(txs)
}

// Verify compara la proyección guardada con la reproducción. Lista vacía = consistente.
// Libro y proyección se leen bajo el mismo bloqueo, así una escritura en curso no aparece como deriva.
func (p *Projector) Verify(ctx context.Context) ([]Drift, error) {
	var drift []Drift
	err := p.txRunner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		if err := stockRepo.LockAll(ctx); err != nil {
			return err
		}
		txs, err := txRepo.ListAll(ctx)
		if err != nil {
			return err
		}
		replayed, err := domaininv.Replay(txs)
		if err != nil {
			return err
		}
		rows, err := stockRepo.ListAll(ctx)
		if err != nil {
			return err
		}
		stored := make(map[string]int, len(rows))
		for _, s := range rows {
			stored[s.ProductID] = s.Quantity
		}
		drift = diffQuantities(stored, replayed)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify projection: %w", err)
	}
	return drift, nil
}

// Rebuild reescribe la proyección desde el libro en una sola transacción.
// El bloqueo va primero: el libro se lee cuando ya no puede confirmarse ningún movimiento nuevo.
func (p *Projector) Rebuild(ctx context.Context) (map[string]int, error) {
	var replayed map[string]int
	err := p.txRunner.Run(ctx, func(txRepo repository.TransactionRepository, stockRepo repository.StockRepository) error {
		if err := stockRepo.LockAll(ctx); err != nil {
			return err
		}
		txs, err := txRepo.ListAll(ctx)
		if err != nil {
			return err
		}
		replayed, err = domaininv.Replay(txs)
		if err != nil {
			return err
		}
		return stockRepo.ReplaceAll(ctx, replayed)
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild projection: %w", err)
	}
	p.log.Info().Int("products", len(replayed)).Msg("proyección reconstruida")
	p.events.Publish(StockEvent{Kind: "rebuild", Levels: replayed, At: time.Now().UTC()})
	return replayed, nil
}

// Inventory listado de inventario: cantidad, valor en bodega y alerta de stock bajo por producto del catálogo.
func (p *Projector) Inventory(ctx context.Context) ([]entity.StockLevel, error) {
	products, err := p.products.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	onHand, err := p.OnHandAll(ctx)
	if err != nil {
		return nil, err
	}
	levels := make([]entity.StockLevel, 0, len(products))
	for _, prod := range products {
		qty := onHand[prod.ID]
		levels = append(levels, entity.StockLevel{
			ProductID:      prod.ID,
			Name:           prod.Name,
			Quantity:       qty,
			UnitPrice:      prod.Price,
			StockValue:     prod.Price.Mul(decimal.NewFromInt(int64(qty))),
			AlertThreshold: prod.AlertThreshold,
			BelowAlert:     qty <= prod.AlertThreshold,
		})
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i].Name < levels[j].Name })
	return levels, nil
}

// diffQuantities los ausentes cuentan como 0.
func diffQuantities(stored, replayed map[string]int) []Drift {
	ids := make(map[string]struct{}, len(stored)+len(replayed))
	for id := range stored {
		ids[id] = struct{}{}
	}
	for id := range replayed {
		ids[id] = struct{}{}
	}
	var drift []Drift
	for id := range ids {
		if stored[id] != replayed[id] {
			drift = append(drift, Drift{ProductID: id, Stored: stored[id], Replayed: replayed[id]})
		}
	}
	sort.Slice(drift, func(i, j int) bool { return drift[i].ProductID < drift[j].ProductID })
	return drift
}
