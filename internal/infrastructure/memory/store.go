package memory

import (
	"sync"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Store almacenamiento en proceso del libro, la proyección y el catálogo.
// Las escrituras del libro pasan por un overlay que se publica completo o se descarta (ver TxRunner).
type Store struct {
	mu sync.RWMutex

	txs      []*entity.Transaction // orden de confirmación
	index    map[string]int        // id -> posición en txs
	resolved map[string]string     // venta -> movimiento que la concilia
	stock    map[string]*entity.Stock
	seq      int64

	products   map[string]*entity.Product
	categories map[string]*entity.Category
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		index:      make(map[string]int),
		resolved:   make(map[string]string),
		stock:      make(map[string]*entity.Stock),
		products:   make(map[string]*entity.Product),
		categories: make(map[string]*entity.Category),
	}
}

// overlay escrituras pendientes de una transacción. Las lecturas ven primero lo pendiente y luego lo confirmado.
// Quien lo usa debe tener s.mu (lectura para consultas, escritura para modificar).
type overlay struct {
	s *Store

	appended []*entity.Transaction
	staged   map[string]*entity.Transaction // nuevos o modificados en esta transacción
	resolved map[string]string
	stock    map[string]*entity.Stock
	replaced bool // la proyección completa fue reemplazada
	seq      int64
}

func newOverlay(s *Store) *overlay {
	return &overlay{
		s:        s,
		staged:   make(map[string]*entity.Transaction),
		resolved: make(map[string]string),
		stock:    make(map[string]*entity.Stock),
		seq:      s.seq,
	}
}

func (o *overlay) tx(id string) *entity.Transaction {
	if t, ok := o.staged[id]; ok {
		return t
	}
	if i, ok := o.s.index[id]; ok {
		return o.s.txs[i]
	}
	return nil
}

func (o *overlay) resolvedBy(outboundID string) (string, bool) {
	if id, ok := o.resolved[outboundID]; ok {
		return id, true
	}
	id, ok := o.s.resolved[outboundID]
	return id, ok
}

// all libro completo visto desde la transacción, en orden de confirmación.
func (o *overlay) all() []*entity.Transaction {
	out := make([]*entity.Transaction, 0, len(o.s.txs)+len(o.appended))
	for _, t := range o.s.txs {
		if st, ok := o.staged[t.ID]; ok {
			out = append(out, st)
			continue
		}
		out = append(out, t)
	}
	return append(out, o.appended...)
}

func (o *overlay) stockOf(productID string) *entity.Stock {
	if s, ok := o.stock[productID]; ok {
		return s
	}
	if o.replaced {
		return nil
	}
	return o.s.stock[productID]
}

func (o *overlay) allStock() map[string]*entity.Stock {
	out := make(map[string]*entity.Stock)
	if !o.replaced {
		for id, s := range o.s.stock {
			out[id] = s
		}
	}
	for id, s := range o.stock {
		out[id] = s
	}
	return out
}

// commit publica el overlay en el Store. Requiere s.mu en escritura.
func (o *overlay) commit() {
	s := o.s
	for id, t := range o.staged {
		if i, ok := s.index[id]; ok {
			s.txs[i] = t
		}
	}
	for _, t := range o.appended {
		s.index[t.ID] = len(s.txs)
		s.txs = append(s.txs, t)
	}
	for k, v := range o.resolved {
		s.resolved[k] = v
	}
	if o.replaced {
		s.stock = make(map[string]*entity.Stock, len(o.stock))
	}
	for id, st := range o.stock {
		s.stock[id] = st
	}
	s.seq = o.seq
}

// write ejecuta fn sobre ov si ya hay transacción; si no, abre una propia y la confirma si fn no falla.
func (s *Store) write(ov *overlay, fn func(o *overlay) error) error {
	if ov != nil {
		return fn(ov)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := newOverlay(s)
	if err := fn(o); err != nil {
		return err
	}
	o.commit()
	return nil
}

// read ejecuta fn con la vista de la transacción o, fuera de ella, con el estado confirmado.
func (s *Store) read(ov *overlay, fn func(o *overlay) error) error {
	if ov != nil {
		return fn(ov)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newOverlay(s))
}
