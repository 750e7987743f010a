package inventory

import (
	"fmt"
	"strings"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// SignedQuantity efecto de un movimiento sobre la cantidad disponible del producto.
// Compra, devolución y artículo original de un cambio suman; venta y artículo nuevo de un cambio restan.
func SignedQuantity(kind entity.TransactionKind, quantity int) int {
	switch kind {
	case entity.KindInbound, entity.KindReturn, entity.KindExchangeOut:
		return quantity
	case entity.KindOutbound, entity.KindExchangeIn:
		return -quantity
	}
	return 0
}

// Replay recorre el libro en orden de confirmación y devuelve la cantidad por producto.
// Falla con domain.ErrLedgerCorrupt si algún prefijo deja un producto en negativo.
func Replay(txs []*entity.Transaction) (map[string]int, error) {
	onHand := make(map[string]int)
	for _, t := range txs {
		onHand[t.ProductID] += SignedQuantity(t.Kind, t.Quantity)
		if onHand[t.ProductID] < 0 {
			return nil, fmt.Errorf("%w: producto %s queda en %d tras seq %d",
				domain.ErrLedgerCorrupt, t.ProductID, onHand[t.ProductID], t.Seq)
		}
	}
	return onHand, nil
}

// LineValue valor de una línea de cambio: precio unitario actual * cantidad.
func LineValue(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ExchangeStatus resultado de comparar el valor propuesto con el de la venta.
type ExchangeStatus string

const (
	ExchangeExact   ExchangeStatus = "exact"
	ExchangeDeficit ExchangeStatus = "deficit"
	ExchangeExcess  ExchangeStatus = "excess"
)

// CompareExchange compara exactamente (sin redondeo) el total propuesto con el valor original.
// Difference = proposed - original; negativa en déficit.
func CompareExchange(original, proposed decimal.Decimal) (ExchangeStatus, decimal.Decimal) {
	diff := proposed.Sub(original)
	switch {
	case diff.IsZero():
		return ExchangeExact, decimal.Zero
	case diff.IsNegative():
		return ExchangeDeficit, diff
	default:
		return ExchangeExcess, diff
	}
}

// ConservationError traduce la comparación a error tipado; nil si el cambio es exacto.
func ConservationError(original, proposed decimal.Decimal) error {
	status, diff := CompareExchange(original, proposed)
	switch status {
	case ExchangeDeficit:
		return &domain.ExchangeMismatchError{Kind: domain.MismatchDeficit, Amount: diff.Abs()}
	case ExchangeExcess:
		return &domain.ExchangeMismatchError{Kind: domain.MismatchExcess, Amount: diff}
	}
	return nil
}

// ValidateForAppend revisa los campos obligatorios de un movimiento antes de escribirlo.
// No consulta stock ni estado de la venta: eso se verifica bajo bloqueo en la capa de aplicación.
func ValidateForAppend(t *entity.Transaction) error {
	verr := &domain.ValidationError{}
	if !t.Kind.Valid() {
		verr.Add("kind", "oneof")
	}
	if strings.TrimSpace(t.ProductID) == "" {
		verr.Add("product_id", "required")
	}
	if t.Quantity <= 0 {
		verr.Add("quantity", "gt=0")
	}
	if t.LineValue.IsNegative() {
		verr.Add("line_value", "gte=0")
	}
	if strings.TrimSpace(t.Counterparty) == "" {
		verr.Add("counterparty", "required")
	}
	if strings.TrimSpace(t.RecordedBy) == "" {
		verr.Add("recorded_by", "required")
	}
	hasLink := t.LinkedTransactionID != nil && *t.LinkedTransactionID != ""
	if t.Kind.RequiresLink() && !hasLink {
		verr.Add("linked_transaction_id", "required")
	}
	if !t.Kind.RequiresLink() && t.LinkedTransactionID != nil {
		verr.Add("linked_transaction_id", "excluded")
	}
	if verr.Empty() {
		return nil
	}
	return verr
}
