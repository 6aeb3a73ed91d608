package cli

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/rowcache"
	"github.com/unkn0wn-root/rowcache/internal/config"
)

// setup creates a SQLite store with two users and a config pointing at it.
func setup(t *testing.T, handler string) string {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data.db")

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, visits INTEGER)`,
		`INSERT INTO users (id, name, visits) VALUES (1, 'ada', 3), (2, 'grace', 0)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	cfgPath := filepath.Join(dir, "rowcache.yaml")
	body := "connections:\n  default:\n    handler: " + handler + "\n    cache:\n      prefix: test\n" +
		"store:\n  driver: sqlite\n  dsn: " + dbPath + "\n" +
		"logging:\n  driver: none\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))
	return cfgPath
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestGet(t *testing.T) {
	for _, handler := range []string{HandlerRistretto, HandlerBigCache} {
		t.Run(handler, func(t *testing.T) {
			cfg := setup(t, handler)

			out, _, err := execute(t, "-c", cfg, "get", "users", "1")
			require.NoError(t, err)
			var got map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &got))
			require.Equal(t, "ada", got["name"])

			out, _, err = execute(t, "-c", cfg, "get", "users", "99")
			require.NoError(t, err)
			require.Equal(t, "null", strings.TrimSpace(out))
		})
	}
}

func TestMGetKeepsOrderAndDuplicates(t *testing.T) {
	cfg := setup(t, HandlerRistretto)

	out, errOut, err := execute(t, "-c", cfg, "--stats", "mget", "users", "2", "99", "1", "2")
	require.NoError(t, err)
	var got []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 3)
	require.Equal(t, "grace", got[0]["name"])
	require.Equal(t, "ada", got[1]["name"])
	require.Equal(t, "grace", got[2]["name"])

	require.Contains(t, errOut, `rowcache_misses_total{connection="default",table="users"} 3`)
}

func TestDestroyAndIncrementOnColdCache(t *testing.T) {
	cfg := setup(t, HandlerRistretto)

	out, _, err := execute(t, "-c", cfg, "destroy", "users", "1", "2")
	require.NoError(t, err)
	require.JSONEq(t, `{"destroyed": true}`, out)

	// a fresh in-process cache holds nothing, so the guard refuses
	out, errOut, err := execute(t, "-c", cfg, "--stats", "incr", "users", "1", "visits", "1")
	require.NoError(t, err)
	require.JSONEq(t, `{"incremented": false}`, out)
	require.Contains(t, errOut, "rowcache_increment_rejected_total")
}

func TestUnknownConnectionFallsBackToStore(t *testing.T) {
	cfg := setup(t, HandlerRistretto)

	out, _, err := execute(t, "-c", cfg, "--connection", "reports", "get", "users", "2")
	require.NoError(t, err)
	require.Contains(t, out, "grace")

	out, _, err = execute(t, "-c", cfg, "--connection", "reports", "destroy", "users", "2")
	require.NoError(t, err)
	require.JSONEq(t, `{"destroyed": false}`, out)
}

func TestInit(t *testing.T) {
	p := filepath.Join(t.TempDir(), "rowcache.jsonc")

	out, _, err := execute(t, "init", p)
	require.NoError(t, err)
	require.Contains(t, out, "wrote")

	_, _, err = execute(t, "init", p)
	require.ErrorIs(t, err, config.ErrExists)

	_, _, err = execute(t, "init", "--force", p)
	require.NoError(t, err)
}

func TestBadArguments(t *testing.T) {
	cfg := setup(t, HandlerRistretto)

	_, _, err := execute(t, "-c", cfg, "incr", "users", "1", "visits", "lots")
	require.ErrorContains(t, err, "invalid amount")

	_, _, err = execute(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "get", "users", "1")
	require.Error(t, err)
}

func TestParseIDs(t *testing.T) {
	f := &rootFlags{}
	require.Equal(t, []rowcache.ID{rowcache.IntID(7), rowcache.StringID("ab")}, f.parseIDs([]string{"7", "ab"}))

	f.stringIDs = true
	require.Equal(t, []rowcache.ID{rowcache.StringID("7")}, f.parseIDs([]string{"7"}))
}

func TestNewLogger(t *testing.T) {
	for _, driver := range []string{"zap", "logrus", "zerolog", "slog", "none"} {
		var buf bytes.Buffer
		l, flush, err := newLogger(config.LoggingConfig{Driver: driver, Level: "info"}, &buf)
		require.NoError(t, err, driver)
		l.Info("hello", rowcache.Fields{"k": "v"})
		require.NoError(t, flush())
		if driver != "none" {
			require.Contains(t, buf.String(), "hello", driver)
		}
	}
	_, _, err := newLogger(config.LoggingConfig{Driver: "syslog", Level: "info"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestRowCodecs(t *testing.T) {
	for _, name := range []string{"msgpack", "json", "cbor", "protobuf"} {
		c, err := newRowCodec(config.BigCacheConfig{Codec: name, MaxDecode: 1 << 10})
		require.NoError(t, err, name)
		b, err := c.Encode(rowcache.Row{"id": "x"})
		require.NoError(t, err, name)
		row, err := c.Decode(b)
		require.NoError(t, err, name)
		require.Equal(t, "x", row["id"], name)
	}
	_, err := newRowCodec(config.BigCacheConfig{Codec: "gob"})
	require.Error(t, err)
}
