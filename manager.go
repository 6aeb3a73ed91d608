package rowcache

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"
)

// Manager implements cache-aside reads, invalidation and guarded increments
// over one Backend per connection name. The handler map is fixed in New, so
// a Manager is safe for concurrent use without locking.
type Manager struct {
	handlers map[string]Backend
	store    RecordStore
	log      Logger
	hooks    Hooks
	disabled bool
	sf       *singleflight.Group // nil unless Options.SingleFlight
}

// New builds every configured backend through opts.Registry. Any failure
// closes the backends built so far and returns no Manager.
func New(opts Options) (*Manager, error) {
	if opts.Connections == nil {
		return nil, ErrMissingConfig
	}
	if opts.Store == nil {
		return nil, ErrNoStore
	}

	m := &Manager{
		handlers: make(map[string]Backend, len(opts.Connections)),
		store:    opts.Store,
		disabled: opts.Disabled,
	}
	m.log = coalesce[Logger](opts.Logger, NopLogger{})
	m.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	if opts.SingleFlight {
		m.sf = new(singleflight.Group)
	}
	if m.disabled {
		m.log.Info("rowcache disabled; all reads go to the store", nil)
		return m, nil
	}

	names := make([]string, 0, len(opts.Connections))
	for name := range opts.Connections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cc := opts.Connections[name]
		factory, ok := opts.Registry[cc.Handler]
		if !ok || factory == nil {
			_ = m.Close(context.Background())
			return nil, &UnknownHandlerError{Connection: name, Handler: cc.Handler}
		}
		cfg := cc.Cache.withDefaults(name)
		if err := cfg.validate(); err != nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("rowcache: connection %q: %w", name, err)
		}
		b, err := factory(name, cfg)
		if err != nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("rowcache: connection %q: build %s backend: %w", name, cc.Handler, err)
		}
		if b == nil {
			_ = m.Close(context.Background())
			return nil, fmt.Errorf("rowcache: connection %q: %s factory returned nil backend", name, cc.Handler)
		}
		m.handlers[name] = b
		m.log.Debug("cache handler registered", Fields{"connection": name, "handler": cc.Handler, "prefix": cfg.Prefix})
	}
	return m, nil
}

// Handler returns the backend registered for connection.
func (m *Manager) Handler(connection string) (Backend, bool) {
	b, ok := m.handlers[connection]
	return b, ok
}

// Key returns the cache key for id, or false if entity's connection has no backend.
func (m *Manager) Key(id ID, entity EntityType) (string, bool) {
	entity = entity.normalize()
	b, ok := m.handlers[entity.Connection]
	if !ok {
		return "", false
	}
	return CacheKey(id, entity, b.Config()), true
}

// FetchOne returns the record for id, or nil if it does not exist.
//
// A cached row is returned as is. A negative entry returns nil without a
// store read. On a true miss the store is read and the result is cached,
// as a negative entry when the row does not exist.
func (m *Manager) FetchOne(ctx context.Context, id ID, entity EntityType) (*Record, error) {
	entity, b, ok := m.handler(entity)
	if !ok {
		row, found, err := m.store.FindByPrimaryKey(ctx, entity.Table, entity.PrimaryKey, id)
		if err != nil {
			return nil, opErr("find", entity.Connection, "", err)
		}
		if !found {
			return nil, nil
		}
		return loadedRecord(entity, row), nil
	}

	key := CacheKey(id, entity, b.Config())
	row, hit, err := b.Get(ctx, key)
	if err != nil {
		return nil, opErr("get", entity.Connection, key, err)
	}
	if hit {
		if row.Negative() {
			m.hooks.NegativeHit(entity.Connection, entity.Table)
			return nil, nil
		}
		m.hooks.Hit(entity.Connection, entity.Table, 1)
		return loadedRecord(entity, row), nil
	}

	m.hooks.Miss(entity.Connection, entity.Table, 1)
	row, err = m.load(ctx, b, key, id, entity)
	if err != nil || row == nil {
		return nil, err
	}
	return loadedRecord(entity, row), nil
}

// load repopulates key from the store. With SingleFlight on, concurrent
// callers share one store read. The shared read keeps the first caller's
// context values but not its cancellation; each caller stops waiting when
// its own context is done.
func (m *Manager) load(ctx context.Context, b Backend, key string, id ID, entity EntityType) (Row, error) {
	if m.sf == nil {
		return m.loadOnce(ctx, b, key, id, entity)
	}
	shareCtx := context.WithoutCancel(ctx)
	ch := m.sf.DoChan(key, func() (any, error) {
		return m.loadOnce(shareCtx, b, key, id, entity)
	})
	select {
	case <-ctx.Done():
		return nil, opErr("find", entity.Connection, key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			m.log.Debug("store read shared", Fields{"key": key})
		}
		row, _ := res.Val.(Row)
		return row, nil
	}
}

func (m *Manager) loadOnce(ctx context.Context, b Backend, key string, id ID, entity EntityType) (Row, error) {
	row, found, err := m.store.FindByPrimaryKey(ctx, entity.Table, entity.PrimaryKey, id)
	if err != nil {
		return nil, opErr("find", entity.Connection, "", err)
	}
	cfg := b.Config()
	if !found || len(row) == 0 {
		if err := b.Set(ctx, key, Row{}, cfg.NegativeTTL); err != nil {
			return nil, opErr("set", entity.Connection, key, err)
		}
		m.log.Debug("negative entry written", Fields{"key": key})
		return nil, nil
	}
	if err := b.Set(ctx, key, row, cfg.TTL); err != nil {
		return nil, opErr("set", entity.Connection, key, err)
	}
	return row, nil
}

// FetchMany returns the records for ids in request order. Duplicated ids
// yield one record per occurrence; ids found in neither layer are dropped.
//
// Only rows carrying the primary-key field count as cached, so ids with a
// negative entry are read from the store again. Ids still missing after the
// store read are not negatively cached.
func (m *Manager) FetchMany(ctx context.Context, ids []ID, entity EntityType) ([]*Record, error) {
	if len(ids) == 0 {
		return []*Record{}, nil
	}
	entity, b, ok := m.handler(entity)
	if !ok {
		rows, err := m.store.FindManyByPrimaryKey(ctx, entity.Table, entity.PrimaryKey, ids)
		if err != nil {
			return nil, opErr("find_many", entity.Connection, "", err)
		}
		out := make([]*Record, 0, len(rows))
		for _, row := range rows {
			out = append(out, loadedRecord(entity, row))
		}
		return out, nil
	}

	cfg := b.Config()
	cached, err := b.GetMultiple(ctx, cacheKeys(ids, entity, cfg))
	if err != nil {
		return nil, opErr("get_multiple", entity.Connection, "", err)
	}

	resolved := make(map[string]Row, len(ids))
	for _, row := range cached {
		if id, ok := primaryKeyOf(row, entity); ok {
			resolved[id.String()] = row
		}
	}
	if hits := len(resolved); hits > 0 {
		m.hooks.Hit(entity.Connection, entity.Table, hits)
	}

	if targets := unresolved(ids, resolved); len(targets) > 0 {
		m.hooks.Miss(entity.Connection, entity.Table, len(targets))
		rows, err := m.store.FindManyByPrimaryKey(ctx, entity.Table, entity.PrimaryKey, targets)
		if err != nil {
			return nil, opErr("find_many", entity.Connection, "", err)
		}
		for _, row := range rows {
			id, ok := primaryKeyOf(row, entity)
			if !ok {
				m.log.Warn("store row without primary key skipped", Fields{"table": entity.Table, "primaryKey": entity.PrimaryKey})
				continue
			}
			key := CacheKey(id, entity, cfg)
			if err := b.Set(ctx, key, row, cfg.TTL); err != nil {
				return nil, opErr("set", entity.Connection, key, err)
			}
			resolved[id.String()] = row
		}
	}

	out := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if row, ok := resolved[id.String()]; ok {
			out = append(out, loadedRecord(entity, row))
		}
	}
	return out, nil
}

// Destroy drops the cache entries for ids. Store rows are left alone.
// It reports false when entity's connection has no backend.
func (m *Manager) Destroy(ctx context.Context, ids []ID, entity EntityType) (bool, error) {
	entity, b, ok := m.handler(entity)
	if !ok {
		return false, nil
	}
	if len(ids) == 0 {
		return true, nil
	}
	deleted, err := b.DeleteMultiple(ctx, cacheKeys(ids, entity, b.Config()))
	if err != nil {
		return false, opErr("delete_multiple", entity.Connection, "", err)
	}
	return deleted, nil
}

// Increment adds amount to column of the cached entry for id. It only acts
// when the entry exists (positive or negative); otherwise it returns false
// and creates nothing. The store is never written.
func (m *Manager) Increment(ctx context.Context, id ID, column string, amount float64, entity EntityType) (bool, error) {
	entity, b, ok := m.handler(entity)
	if !ok {
		return false, nil
	}
	key := CacheKey(id, entity, b.Config())
	has, err := b.Has(ctx, key)
	if err != nil {
		return false, opErr("has", entity.Connection, key, err)
	}
	if !has {
		m.hooks.IncrementRejected(entity.Connection, entity.Table)
		m.log.Debug("increment skipped; key not cached", Fields{"key": key, "column": column})
		return false, nil
	}
	done, err := b.IncrementField(ctx, key, column, amount)
	if err != nil {
		return false, opErr("increment", entity.Connection, key, err)
	}
	return done, nil
}

// Close closes every backend. Errors are collected per connection.
func (m *Manager) Close(ctx context.Context) error {
	var errs map[string]error
	for name, b := range m.handlers {
		if err := b.Close(ctx); err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[name] = err
		}
	}
	if errs != nil {
		return &closeError{errs: errs}
	}
	return nil
}

func (m *Manager) handler(entity EntityType) (EntityType, Backend, bool) {
	entity = entity.normalize()
	if m.disabled {
		return entity, nil, false
	}
	b, ok := m.handlers[entity.Connection]
	if !ok {
		m.log.Warn("no cache handler for connection; reading store directly", Fields{
			"connection": entity.Connection,
			"table":      entity.Table,
		})
		m.hooks.HandlerMissing(entity.Connection)
	}
	return entity, b, ok
}

func primaryKeyOf(row Row, entity EntityType) (ID, bool) {
	v, ok := row[entity.PrimaryKey]
	if !ok {
		return ID{}, false
	}
	return IDFromValue(v)
}

// unresolved returns the ids missing from resolved, deduplicated, in first-seen order.
func unresolved(ids []ID, resolved map[string]Row) []ID {
	var out []ID
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		k := id.String()
		if _, ok := resolved[k]; ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, id)
	}
	return out
}
