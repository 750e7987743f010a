package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que el libro traduce a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeRaiseException       = "P0001"
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

// Restricciones con traducción propia (ver migraciones).
const (
	constraintReconciliationOnce = "transactions_reconciliation_once"
	constraintStockNonNegative   = "stock_quantity_non_negative"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// mapPgError traduce errores de PostgreSQL a errores de dominio conservando el original con %w.
// Devuelve err sin cambios si no hay traducción.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if err == nil || !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeLockNotAvailable, codeQueryCanceled:
		return fmt.Errorf("%w: %s", domain.ErrBusy, pgErr.Message)
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
	case codeUniqueViolation:
		if pgErr.ConstraintName == constraintReconciliationOnce {
			return domain.ErrAlreadyResolved
		}
		return fmt.Errorf("%w: %s", domain.ErrDuplicate, pgErr.ConstraintName)
	case codeCheckViolation:
		if pgErr.ConstraintName == constraintStockNonNegative {
			return fmt.Errorf("%w: %s", domain.ErrInsufficientStock, pgErr.Message)
		}
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, pgErr.ConstraintName)
	case codeRaiseException:
		// trigger de solo inserción
		return fmt.Errorf("%w: %s", domain.ErrLedgerCorrupt, pgErr.Message)
	}
	return err
}
