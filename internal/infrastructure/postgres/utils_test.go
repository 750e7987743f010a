package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestMapPgError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"lock timeout", &pgconn.PgError{Code: codeLockNotAvailable}, domain.ErrBusy},
		{"statement timeout", &pgconn.PgError{Code: codeQueryCanceled}, domain.ErrBusy},
		{"serialización", &pgconn.PgError{Code: codeSerializationFailure}, domain.ErrConflict},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, domain.ErrConflict},
		{"segunda conciliación", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: constraintReconciliationOnce}, domain.ErrAlreadyResolved},
		{"id repetido", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "transactions_pkey"}, domain.ErrDuplicate},
		{"stock negativo", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: constraintStockNonNegative}, domain.ErrInsufficientStock},
		{"otro check", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "transactions_quantity_check"}, domain.ErrInvalidInput},
		{"trigger solo inserción", &pgconn.PgError{Code: codeRaiseException}, domain.ErrLedgerCorrupt},
		{"envuelto", fmt.Errorf("append transaction: %w", &pgconn.PgError{Code: codeLockNotAvailable}), domain.ErrBusy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, mapPgError(tc.err), tc.want)
		})
	}

	assert.True(t, domain.IsRetryable(mapPgError(&pgconn.PgError{Code: codeDeadlockDetected})))
	assert.Nil(t, mapPgError(nil))

	plain := errors.New("conexión cerrada")
	assert.Same(t, plain, mapPgError(plain))
	other := &pgconn.PgError{Code: "23503"}
	assert.Equal(t, error(other), mapPgError(other))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("x: %w", &pgconn.PgError{Code: codeUniqueViolation})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: codeCheckViolation}))
	assert.False(t, isUniqueViolation(errors.New("23505 en el texto no cuenta")))
}

func TestMigrationsEmbebidas(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_ledger_schema.up.sql")
	assert.Contains(t, names, "000001_ledger_schema.down.sql")
	assert.Contains(t, names, "000002_categories.up.sql")
	assert.Contains(t, names, "000002_categories.down.sql")

	up, err := migrationsFS.ReadFile("migrations/000001_ledger_schema.up.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(up), constraintReconciliationOnce)
	assert.Contains(t, string(up), constraintStockNonNegative)
}
