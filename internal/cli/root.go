// Package cli implements the rowcache command: cache-aside reads and cache
// maintenance against a configured record store.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/rowcache"
	promhooks "github.com/unkn0wn-root/rowcache/hooks/prom"
	"github.com/unkn0wn-root/rowcache/internal/config"
)

type rootFlags struct {
	configPath string
	connection string
	primaryKey string
	stringIDs  bool
	stats      bool
}

// CLI holds the manager built from one config file and everything it owns.
type CLI struct {
	Manager  *rowcache.Manager
	Config   *config.Config
	Registry *prometheus.Registry

	closers []func() error
}

func newCLI(ctx context.Context, cfg *config.Config, logOut io.Writer) (*CLI, error) {
	c := &CLI{Config: cfg, Registry: prometheus.NewRegistry()}
	if err := c.build(ctx, logOut); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}
	return c, nil
}

func (c *CLI) build(ctx context.Context, logOut io.Writer) error {
	cfg := c.Config
	logger, syncLog, err := newLogger(cfg.Logging, logOut)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, syncLog)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, closeStore)

	hooks := promhooks.New(c.Registry, "")
	registry, closeRegistry, err := buildRegistry(cfg, hooks)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, closeRegistry)

	m, err := rowcache.New(rowcache.Options{
		Connections:  cfg.Connections,
		Registry:     registry,
		Store:        store,
		Logger:       logger,
		Hooks:        hooks,
		SingleFlight: cfg.SingleFlight,
		Disabled:     cfg.Disabled,
	})
	if err != nil {
		return err
	}
	c.Manager = m
	return nil
}

// Close closes the manager first, then what it was built on.
func (c *CLI) Close(ctx context.Context) error {
	var errs []error
	if c.Manager != nil {
		errs = append(errs, c.Manager.Close(ctx))
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i]())
	}
	return errors.Join(errs...)
}

// NewRootCmd creates the root command for rowcache.
func NewRootCmd(version string) *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:          "rowcache",
		Short:        "Cache-aside record reads",
		Long:         `Read records through the configured cache, drop cached entries and bump cached counters.`,
		Version:      version,
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "rowcache.jsonc", "config file (.jsonc, .json, .yaml, .toml)")
	pf.StringVar(&f.connection, "connection", rowcache.DefaultConnection, "connection name")
	pf.StringVar(&f.primaryKey, "primary-key", rowcache.DefaultPrimaryKey, "primary-key column")
	pf.BoolVar(&f.stringIDs, "string-ids", false, "treat every id as a string")
	pf.BoolVar(&f.stats, "stats", false, "print cache counters to stderr when done")

	root.AddCommand(
		newGetCmd(f),
		newMGetCmd(f),
		newDestroyCmd(f),
		newIncrCmd(f),
		newInitCmd(),
	)
	return root
}

// run loads the config, builds a CLI and hands it to fn.
func run(cmd *cobra.Command, f *rootFlags, fn func(*CLI) error) (err error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	c, err := newCLI(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to initialize rowcache: %w", err)
	}
	defer func() {
		if closeErr := c.Close(ctx); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if err := fn(c); err != nil {
		return err
	}
	if f.stats {
		return writeStats(cmd.ErrOrStderr(), c.Registry)
	}
	return nil
}

func (f *rootFlags) entity(table string) rowcache.EntityType {
	return rowcache.EntityType{Connection: f.connection, Table: table, PrimaryKey: f.primaryKey}
}

// parseIDs reads decimal integers as IntID unless --string-ids is set.
func (f *rootFlags) parseIDs(args []string) []rowcache.ID {
	out := make([]rowcache.ID, len(args))
	for i, a := range args {
		if !f.stringIDs {
			if n, err := strconv.ParseInt(a, 10, 64); err == nil {
				out[i] = rowcache.IntID(n)
				continue
			}
		}
		out[i] = rowcache.StringID(a)
	}
	return out
}
