// Package sqlstore reads rows by primary key from a database/sql handle.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/unkn0wn-root/rowcache"
)

// Dialect selects placeholder and identifier quoting syntax.
type Dialect int

const (
	SQLite   Dialect = iota // ? and "ident"
	Postgres                // $1 and "ident"
	MySQL                   // ? and `ident`
)

// ParseDialect maps a driver-style name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	}
	return 0, fmt.Errorf("sqlstore: unknown dialect %q", name)
}

// maxBatch bounds the ids sent in one IN (...) query; SQLite's default
// variable limit is 999.
const maxBatch = 500

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ rowcache.RecordStore = (*Store)(nil)

func New(db *sql.DB, dialect Dialect) (*Store, error) {
	if db == nil {
		return nil, errors.New("sqlstore: nil db")
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) FindByPrimaryKey(ctx context.Context, table, primaryKey string, id rowcache.ID) (rowcache.Row, bool, error) {
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s = %s LIMIT 1",
		s.quote(table), s.quote(primaryKey), s.placeholder(1))
	rows, err := s.db.QueryContext(ctx, q, id.Value())
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: query %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scan(rows)
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: scan %s: %w", table, err)
	}
	if len(out) == 0 {
		return nil, false, nil
	}
	return out[0], true, nil
}

// FindManyByPrimaryKey returns rows in database order. Unknown ids are skipped.
func (s *Store) FindManyByPrimaryKey(ctx context.Context, table, primaryKey string, ids []rowcache.ID) ([]rowcache.Row, error) {
	var out []rowcache.Row
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		rows, err := s.findChunk(ctx, table, primaryKey, ids[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *Store) findChunk(ctx context.Context, table, primaryKey string, ids []rowcache.ID) ([]rowcache.Row, error) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = s.placeholder(i + 1)
		args[i] = id.Value()
	}
	q := fmt.Sprintf("SELECT * FROM %s WHERE %s IN (%s)",
		s.quote(table), s.quote(primaryKey), strings.Join(marks, ", "))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scan(rows)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: scan %s: %w", table, err)
	}
	return out, nil
}

func (s *Store) placeholder(n int) string {
	if s.dialect == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// scan reads every row into a column->value map. []byte values become
// strings so cached rows hold no driver-owned buffers.
func scan(rows *sql.Rows) ([]rowcache.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []rowcache.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(rowcache.Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// quote wraps an identifier, doubling embedded quote characters.
func (s *Store) quote(ident string) string {
	q := `"`
	if s.dialect == MySQL {
		q = "`"
	}
	return q + strings.ReplaceAll(ident, q, q+q) + q
}
