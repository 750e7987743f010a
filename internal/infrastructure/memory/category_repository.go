package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.CategoryRepository = (*CategoryRepo)(nil)

// CategoryRepo categorías en memoria.
type CategoryRepo struct {
	s *Store
}

// NewCategoryRepository construye el repositorio sobre el Store.
func NewCategoryRepository(s *Store) *CategoryRepo {
	return &CategoryRepo{s: s}
}

func (r *CategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[category.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, c := range r.s.categories {
		if c.Code == category.Code {
			return domain.ErrDuplicate
		}
	}
	c := *category
	r.s.categories[c.ID] = &c
	return nil
}

func (r *CategoryRepo) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (r *CategoryRepo) GetByCode(ctx context.Context, code string) (*entity.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Code == code {
			out := *c
			return &out, nil
		}
	}
	return nil, nil
}

func (r *CategoryRepo) List(ctx context.Context) ([]*entity.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}
