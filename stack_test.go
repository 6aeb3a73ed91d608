package rowcache_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/backend/bigcache"
	"github.com/unkn0wn-root/rowcache/backend/ristretto"
	"github.com/unkn0wn-root/rowcache/store/sqlstore"
)

type account struct {
	ID      int64
	Email   string
	Balance float64
}

func accountFromRecord(r *rowcache.Record) (account, error) {
	var (
		a   account
		err error
	)
	if a.ID, err = r.Int64("id"); err != nil {
		return a, err
	}
	if a.Email, err = r.String("email"); err != nil {
		return a, err
	}
	a.Balance, err = r.Float64("balance")
	return a, err
}

// newStack wires a Manager over SQLite with a ristretto "default" connection
// and a bigcache "archive" connection.
func newStack(t *testing.T) (*rowcache.Manager, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range []string{
		`CREATE TABLE accounts (id INTEGER PRIMARY KEY, email TEXT, balance REAL)`,
		`INSERT INTO accounts VALUES (1, 'ada@example.com', 10.5), (2, 'bob@example.com', 0)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	store, err := sqlstore.New(db, sqlstore.SQLite)
	if err != nil {
		t.Fatal(err)
	}

	m, err := rowcache.New(rowcache.Options{
		Connections: map[string]rowcache.ConnectionConfig{
			"default": {Handler: "ristretto", Cache: rowcache.CacheConfig{Prefix: "app", TTL: time.Minute}},
			"archive": {Handler: "bigcache", Cache: rowcache.CacheConfig{Prefix: "arc", TTL: time.Minute}},
		},
		Registry: rowcache.Registry{
			"ristretto": ristretto.Factory(ristretto.Config{NumCounters: 1000, MaxCost: 100, BufferItems: 64}),
			"bigcache":  bigcache.Factory(bigcache.Config{Shards: 8, MaxEntriesInWindow: 64, MaxEntrySize: 256}),
		},
		Store:        store,
		SingleFlight: true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = m.Close(context.Background()) })
	return m, db
}

func TestStackCacheAside(t *testing.T) {
	for _, conn := range []string{"default", "archive"} {
		t.Run(conn, func(t *testing.T) {
			ctx := context.Background()
			m, db := newStack(t)
			accounts := rowcache.NewRepository(m, rowcache.EntityType{Connection: conn, Table: "accounts"}, accountFromRecord)

			a, ok, err := accounts.Find(ctx, rowcache.IntID(1))
			if err != nil || !ok {
				t.Fatalf("Find: ok=%v err=%v", ok, err)
			}

			// the cached copy keeps answering after the row changes
			if _, err := db.Exec(`UPDATE accounts SET email = 'changed' WHERE id = 1`); err != nil {
				t.Fatal(err)
			}
			again, _, err := accounts.Find(ctx, rowcache.IntID(1))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(a, again); diff != "" {
				t.Fatalf("cached read differs (-first +second):\n%s", diff)
			}

			// until it is destroyed
			if ok, err := accounts.Forget(ctx, rowcache.IntID(1)); err != nil || !ok {
				t.Fatalf("Forget: ok=%v err=%v", ok, err)
			}
			fresh, _, err := accounts.Find(ctx, rowcache.IntID(1))
			if err != nil || fresh.Email != "changed" {
				t.Fatalf("after Forget: %+v err=%v", fresh, err)
			}

			if ok, err := accounts.Increment(ctx, rowcache.IntID(1), "balance", 2.5); err != nil || !ok {
				t.Fatalf("Increment: ok=%v err=%v", ok, err)
			}
			bumped, _, _ := accounts.Find(ctx, rowcache.IntID(1))
			if bumped.Balance != 13 {
				t.Fatalf("balance = %v, want 13", bumped.Balance)
			}

			if ok, err := accounts.Increment(ctx, rowcache.IntID(2), "balance", 1); err != nil || ok {
				t.Fatalf("Increment on uncached id: ok=%v err=%v", ok, err)
			}
		})
	}
}

func TestStackFetchMany(t *testing.T) {
	ctx := context.Background()
	m, _ := newStack(t)
	entity := rowcache.EntityType{Table: "accounts"}

	if rec, err := m.FetchOne(ctx, rowcache.IntID(9), entity); err != nil || rec != nil {
		t.Fatalf("FetchOne missing: rec=%v err=%v", rec, err)
	}

	recs, err := m.FetchMany(ctx, rowcache.IntIDs(2, 9, 1, 2), entity)
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	var got []int64
	for _, r := range recs {
		id, _ := r.Int64("id")
		got = append(got, id)
	}
	if diff := cmp.Diff([]int64{2, 1, 2}, got); diff != "" {
		t.Fatalf("ids (-want +got):\n%s", diff)
	}

	key, ok := m.Key(rowcache.IntID(2), entity)
	if !ok || key != "mc:app:m:accounts:id:2" {
		t.Fatalf("Key = %q, %v", key, ok)
	}
	b, _ := m.Handler("default")
	if has, _ := b.Has(ctx, key); !has {
		t.Fatal("FetchMany did not populate the cache")
	}
}
