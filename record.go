package rowcache

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cast"
)

// Row is the field map of one record. In the cache an empty Row is a
// negative entry: the record is known not to exist in the store.
type Row map[string]any

// Clone returns a shallow copy. A nil Row clones to an empty, non-nil Row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Negative reports whether r is a negative entry.
func (r Row) Negative() bool { return len(r) == 0 }

// Columns returns the field names in sorted order.
func (r Row) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

// Record is a Row hydrated for one entity type.
type Record struct {
	entity EntityType
	fields Row
	exists bool
	dirty  map[string]struct{}
}

// NewRecord builds a record that has not been persisted yet.
func NewRecord(entity EntityType, fields Row) *Record {
	return &Record{entity: entity.normalize(), fields: fields.Clone()}
}

// loadedRecord marks the record as read from the store: it exists and
// carries no pending changes.
func loadedRecord(entity EntityType, fields Row) *Record {
	return &Record{entity: entity, fields: fields.Clone(), exists: true}
}

// Entity returns the normalized entity the record belongs to.
func (r *Record) Entity() EntityType { return r.entity }

// Exists reports whether the record was loaded from the store or cache.
func (r *Record) Exists() bool { return r.exists }

// IsDirty reports whether any column was changed through Set.
func (r *Record) IsDirty() bool { return len(r.dirty) > 0 }

// Dirty returns the changed columns in sorted order.
func (r *Record) Dirty() []string {
	out := make([]string, 0, len(r.dirty))
	for k := range r.dirty {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FieldMap returns a copy of the record's fields.
func (r *Record) FieldMap() Row { return r.fields.Clone() }

// Get returns the raw value of column; ok is false when it is absent.
func (r *Record) Get(column string) (any, bool) {
	v, ok := r.fields[column]
	return v, ok
}

// Set assigns column and marks it dirty. Nothing is written back.
func (r *Record) Set(column string, v any) {
	if r.dirty == nil {
		r.dirty = make(map[string]struct{})
	}
	r.fields[column] = v
	r.dirty[column] = struct{}{}
}

// ID returns the primary-key value. ok is false when the field is missing.
func (r *Record) ID() (ID, bool) {
	v, ok := r.fields[r.entity.PrimaryKey]
	if !ok {
		return ID{}, false
	}
	return IDFromValue(v)
}

// Int64 converts a column to int64. Backends that store hashes (Redis) hand
// every value back as a string, so conversion is lenient.
func (r *Record) Int64(column string) (int64, error) {
	v, ok := r.fields[column]
	if !ok {
		return 0, fmt.Errorf("rowcache: column %q not set", column)
	}
	if n, ok := v.(json.Number); ok {
		return n.Int64()
	}
	return cast.ToInt64E(v)
}

func (r *Record) Float64(column string) (float64, error) {
	v, ok := r.fields[column]
	if !ok {
		return 0, fmt.Errorf("rowcache: column %q not set", column)
	}
	if n, ok := v.(json.Number); ok {
		return n.Float64()
	}
	return cast.ToFloat64E(v)
}

func (r *Record) String(column string) (string, error) {
	v, ok := r.fields[column]
	if !ok {
		return "", fmt.Errorf("rowcache: column %q not set", column)
	}
	return cast.ToStringE(v)
}
