package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock cantidad disponible materializada de un producto (proyección del libro).
type Stock struct {
	ProductID string
	Quantity  int
	UpdatedAt time.Time
}

// StockLevel fila del listado de inventario: cantidad proyectada junto a datos del catálogo.
type StockLevel struct {
	ProductID      string
	Name           string
	Quantity       int
	UnitPrice      decimal.Decimal
	StockValue     decimal.Decimal // Quantity * UnitPrice
	AlertThreshold int
	BelowAlert     bool
}
