package rowcache

import (
	"context"
	"fmt"
)

// Repository binds a Manager to one EntityType and hydrates records into T.
//
//	users := rowcache.NewRepository(m, rowcache.EntityType{Table: "users"}, userFromRecord)
//	u, ok, err := users.Find(ctx, rowcache.IntID(7))
type Repository[T any] struct {
	m       *Manager
	entity  EntityType
	hydrate func(*Record) (T, error)
}

func NewRepository[T any](m *Manager, entity EntityType, hydrate func(*Record) (T, error)) *Repository[T] {
	return &Repository[T]{m: m, entity: entity.normalize(), hydrate: hydrate}
}

func (r *Repository[T]) Entity() EntityType { return r.entity }

// Find returns ok=false when the record does not exist.
func (r *Repository[T]) Find(ctx context.Context, id ID) (T, bool, error) {
	var zero T
	rec, err := r.m.FetchOne(ctx, id, r.entity)
	if err != nil || rec == nil {
		return zero, false, err
	}
	v, err := r.hydrate(rec)
	if err != nil {
		return zero, false, fmt.Errorf("rowcache: hydrate %s %s: %w", r.entity.Table, id, err)
	}
	return v, true, nil
}

// FindMany keeps FetchMany's ordering: request order, duplicates kept,
// missing ids dropped.
func (r *Repository[T]) FindMany(ctx context.Context, ids []ID) ([]T, error) {
	recs, err := r.m.FetchMany(ctx, ids, r.entity)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		v, err := r.hydrate(rec)
		if err != nil {
			id, _ := rec.ID()
			return nil, fmt.Errorf("rowcache: hydrate %s %s: %w", r.entity.Table, id, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Repository[T]) Forget(ctx context.Context, ids ...ID) (bool, error) {
	return r.m.Destroy(ctx, ids, r.entity)
}

func (r *Repository[T]) Increment(ctx context.Context, id ID, column string, amount float64) (bool, error) {
	return r.m.Increment(ctx, id, column, amount, r.entity)
}
