package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el libro: si fn devuelve error no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		txRepo repository.TransactionRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// StockEvent notificación emitida después de cada commit con las cantidades ya confirmadas.
type StockEvent struct {
	Kind           string // movement, return, exchange, rebuild
	GroupID        string
	TransactionIDs []string
	Levels         map[string]int
	Seq            int64
	At             time.Time
}

// EventPublisher destino de las notificaciones (hub websocket). Nunca se invoca antes del commit.
type EventPublisher interface {
	Publish(ev StockEvent)
}

// NopPublisher descarta los eventos.
type NopPublisher struct{}

func (NopPublisher) Publish(StockEvent) {}
