package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product artículo del catálogo. El libro solo lee su existencia y su precio unitario.
// La cantidad disponible no vive aquí: se deriva de los movimientos.
type Product struct {
	ID             string
	Name           string
	Brand          string
	Size           string
	Color          string
	CategoryID     string
	Price          decimal.Decimal // precio unitario de venta
	AlertThreshold int             // aviso de stock bajo
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
