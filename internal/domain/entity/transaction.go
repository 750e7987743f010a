package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind tipo de movimiento en el libro.
type TransactionKind string

const (
	KindInbound     TransactionKind = "INBOUND"      // compra: entra mercancía
	KindOutbound    TransactionKind = "OUTBOUND"     // venta: sale mercancía
	KindReturn      TransactionKind = "RETURN"       // devolución de una venta
	KindExchangeOut TransactionKind = "EXCHANGE_OUT" // el artículo original sale de la venta y vuelve a bodega
	KindExchangeIn  TransactionKind = "EXCHANGE_IN"  // artículo nuevo entregado en el cambio
)

// ParseTransactionKind normaliza el tipo recibido. Acepta también los nombres
// usados por el cliente web (purchase, sale, return, exchange_out, exchange_in).
func ParseTransactionKind(s string) (TransactionKind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INBOUND", "PURCHASE", "IN":
		return KindInbound, true
	case "OUTBOUND", "SALE", "OUT":
		return KindOutbound, true
	case "RETURN":
		return KindReturn, true
	case "EXCHANGE_OUT", "EXCHANGEOUT":
		return KindExchangeOut, true
	case "EXCHANGE_IN", "EXCHANGEIN":
		return KindExchangeIn, true
	}
	return "", false
}

// Valid indica si el tipo es uno de los cinco conocidos.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindInbound, KindOutbound, KindReturn, KindExchangeOut, KindExchangeIn:
		return true
	}
	return false
}

// RequiresLink los movimientos de conciliación siempre apuntan a una venta.
func (k TransactionKind) RequiresLink() bool {
	return k == KindReturn || k == KindExchangeOut || k == KindExchangeIn
}

// Resolves indica si el movimiento cierra la venta enlazada (como máximo uno por venta).
func (k TransactionKind) Resolves() bool {
	return k == KindReturn || k == KindExchangeOut
}

// ResolutionState estado de conciliación de una venta. Solo avanza OPEN -> RESOLVED.
type ResolutionState string

const (
	StateOpen     ResolutionState = "OPEN"
	StateResolved ResolutionState = "RESOLVED"
)

// Transaction registro inmutable del libro de movimientos.
// La única mutación permitida es el paso de State a RESOLVED en una venta.
type Transaction struct {
	ID                  string
	Seq                 int64 // orden de confirmación, monotónico
	Kind                TransactionKind
	ProductID           string
	Quantity            int
	LineValue           decimal.Decimal // valor monetario de la línea, no necesariamente qty*precio
	Counterparty        string          // cliente o proveedor
	RecordedBy          string
	RecordedAt          time.Time
	LinkedTransactionID *string // venta conciliada (RETURN, EXCHANGE_OUT, EXCHANGE_IN)
	GroupID             *string // agrupa las líneas de una misma devolución o cambio
	State               ResolutionState
}

// Resolved indica si la venta ya fue devuelta o cambiada.
func (t *Transaction) Resolved() bool {
	return t.State == StateResolved
}

// Reconcilable una venta abierta puede devolverse o cambiarse.
func (t *Transaction) Reconcilable() bool {
	return t.Kind == KindOutbound && t.State != StateResolved
}

// Clone copia profunda (los punteros de enlace no se comparten).
func (t *Transaction) Clone() *Transaction {
	if t == nil {
		return nil
	}
	c := *t
	if t.LinkedTransactionID != nil {
		v := *t.LinkedTransactionID
		c.LinkedTransactionID = &v
	}
	if t.GroupID != nil {
		v := *t.GroupID
		c.GroupID = &v
	}
	return &c
}
