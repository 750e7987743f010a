package inventory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// ProductKey clave de bloqueo por producto.
func ProductKey(productID string) string { return "product:" + productID }

// TxnKey clave de bloqueo por venta conciliada.
func TxnKey(transactionID string) string { return "txn:" + transactionID }

type keyLock struct {
	sem  *semaphore.Weighted
	refs int
}

// KeyLocker exclusión mutua por clave dentro del proceso.
// Las claves se adquieren en orden ascendente y todas o ninguna; las claves sin uso se liberan.
type KeyLocker struct {
	mu      sync.Mutex
	keys    map[string]*keyLock
	timeout time.Duration
}

// NewKeyLocker construye el locker. timeout <= 0 espera hasta que se cancele ctx.
func NewKeyLocker(timeout time.Duration) *KeyLocker {
	return &KeyLocker{keys: make(map[string]*keyLock), timeout: timeout}
}

// Lock adquiere todas las claves. Si vence el timeout o se cancela ctx devuelve domain.ErrBusy
// sin retener ninguna. La función devuelta libera lo adquirido.
func (l *KeyLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	ordered := uniqueSorted(keys)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]string, 0, len(ordered))
	for _, k := range ordered {
		kl := l.ref(k)
		if err := kl.sem.Acquire(ctx, 1); err != nil {
			l.unref(k)
			l.release(held)
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrBusy, k, err)
		}
		held = append(held, k)
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *KeyLocker) ref(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.keys[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.keys[key]
	kl.refs--
	if kl.refs == 0 {
		delete(l.keys, key)
	}
}

func (l *KeyLocker) release(held []string) {
	for i := len(held) - 1; i >= 0; i-- {
		l.mu.Lock()
		kl := l.keys[held[i]]
		l.mu.Unlock()
		kl.sem.Release(1)
		l.unref(held[i])
	}
}

// size número de claves vivas (para pruebas de limpieza).
func (l *KeyLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func uniqueSorted(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
