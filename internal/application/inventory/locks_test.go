package inventory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestKeyLocker_ExclusionYLiberacion(t *testing.T) {
	l := inventory.NewKeyLocker(50 * time.Millisecond)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, inventory.ProductKey("A"), inventory.TxnKey("s1"))
	require.NoError(t, err)

	// Comparte una clave: debe vencer el timeout sin retener la otra
	_, err = l.Lock(ctx, inventory.ProductKey("B"), inventory.ProductKey("A"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBusy)
	assert.True(t, domain.IsRetryable(err))

	unlockB, err := l.Lock(ctx, inventory.ProductKey("B"))
	require.NoError(t, err, "B quedó libre tras el fallo")
	unlockB()

	unlock()
	unlock() // idempotente
	assert.Equal(t, 0, inventory.LockerSize(l), "las claves sin uso se liberan")

	unlock, err = l.Lock(ctx, inventory.ProductKey("A"))
	require.NoError(t, err)
	unlock()
}

func TestKeyLocker_ContextoCancelado(t *testing.T) {
	l := inventory.NewKeyLocker(0)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestKeyLocker_ClavesRepetidas(t *testing.T) {
	l := inventory.NewKeyLocker(time.Second)
	unlock, err := l.Lock(context.Background(), "k", "k")
	require.NoError(t, err, "una clave repetida no se bloquea a sí misma")
	unlock()
	assert.Equal(t, 0, inventory.LockerSize(l))
}
