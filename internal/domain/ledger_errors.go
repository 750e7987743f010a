package domain

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError entrada mal formada con el detalle por campo (campo -> regla incumplida).
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError crea el error con una primera violación.
func NewValidationError(field, rule string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: rule}}
}

// Add registra otra violación.
func (e *ValidationError) Add(field, rule string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = rule
}

// Empty indica si no hay violaciones.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return fmt.Sprintf("%s (%s)", ErrInvalidInput.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// InsufficientStockError una salida dejaría el stock del producto en negativo.
type InsufficientStockError struct {
	ProductID string
	OnHand    int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("%s: producto %s tiene %d, se solicitan %d",
		ErrInsufficientStock.Error(), e.ProductID, e.OnHand, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// MismatchKind sentido de la diferencia de valor en un cambio.
type MismatchKind string

const (
	MismatchDeficit MismatchKind = "deficit"
	MismatchExcess  MismatchKind = "excess"
)

// ExchangeMismatchError el total de las líneas nuevas no coincide exactamente con la venta.
// Amount es siempre positivo: faltante (deficit) o sobrante (excess).
type ExchangeMismatchError struct {
	Kind   MismatchKind
	Amount decimal.Decimal
}

func (e *ExchangeMismatchError) Error() string {
	return fmt.Sprintf("%s: diferencia %s", e.Unwrap().Error(), e.Amount.String())
}

func (e *ExchangeMismatchError) Unwrap() error {
	if e.Kind == MismatchExcess {
		return ErrExchangeExcess
	}
	return ErrExchangeDeficit
}
