package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInsufficientStock = errors.New("stock insuficiente")

	// Conciliación de ventas (devolución / cambio).
	ErrWrongKind                  = errors.New("la transacción no es una venta")
	ErrAlreadyResolved            = errors.New("la venta ya fue devuelta o cambiada")
	ErrEmptyExchange              = errors.New("el cambio no tiene líneas válidas")
	ErrDuplicateProductInOriginal = errors.New("el cambio incluye el producto de la venta original")
	ErrExchangeDeficit            = errors.New("el valor del cambio es menor que el de la venta")
	ErrExchangeExcess             = errors.New("el valor del cambio supera el de la venta")

	// ErrBusy contención de bloqueos: la operación no llegó a aplicarse y puede reintentarse.
	ErrBusy = errors.New("recurso ocupado, reintente")
	// ErrLedgerCorrupt el libro reproducido deja algún producto con stock negativo.
	ErrLedgerCorrupt = errors.New("libro de movimientos inconsistente")
)

// IsRetryable indica si err proviene de contención concurrente (seguro reintentar desde cero).
// El resto de errores requiere corrección por parte del llamador.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrBusy) || errors.Is(err, ErrConflict)
}
