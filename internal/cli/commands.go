package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/rowcache/internal/config"
)

func newGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>",
		Short: "Fetch one record; prints null when it does not exist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(c *CLI) error {
				rec, err := c.Manager.FetchOne(cmd.Context(), f.parseIDs(args[1:])[0], f.entity(args[0]))
				if err != nil {
					return err
				}
				if rec == nil {
					return printJSON(cmd.OutOrStdout(), nil)
				}
				return printJSON(cmd.OutOrStdout(), rec.FieldMap())
			})
		},
	}
}

func newMGetCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mget <table> <id>...",
		Short: "Fetch many records in argument order; missing ids are skipped",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(c *CLI) error {
				recs, err := c.Manager.FetchMany(cmd.Context(), f.parseIDs(args[1:]), f.entity(args[0]))
				if err != nil {
					return err
				}
				out := make([]map[string]any, 0, len(recs))
				for _, r := range recs {
					out = append(out, r.FieldMap())
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
}

func newDestroyCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy <table> <id>...",
		Short: "Drop cached entries; store rows are untouched",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(c *CLI) error {
				ok, err := c.Manager.Destroy(cmd.Context(), f.parseIDs(args[1:]), f.entity(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]bool{"destroyed": ok})
			})
		},
	}
}

func newIncrCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "incr <table> <id> <column> <amount>",
		Short: "Add amount to a column of a cached record; never creates an entry",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := cast.ToFloat64E(args[3])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[3], err)
			}
			return run(cmd, f, func(c *CLI) error {
				ok, err := c.Manager.Increment(cmd.Context(), f.parseIDs(args[1:2])[0], args[2], amount, f.entity(args[0]))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]bool{"incremented": ok})
			})
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init <path>",
		Short: "Write a sample config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteSample(args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

