package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syssam/dao/dialect/sql/schema"
)

func newCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count <table>",
		Short: "Print the number of rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(args[0])
			if err != nil {
				return err
			}
			n, err := s.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newListCmd(a *app) *cobra.Command {
	var (
		opts   listOptions
		format string
	)
	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List the rows of a table",
		Example: `  # Ten longest notes first
  daoctl list NOTE --order -LENGTH --limit 10

  # Filter and export
  daoctl list NOTE --where "TEXT~%go%" --where "DATE>=1700000000000" --format yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(format)
			if err != nil {
				return err
			}
			s, err := a.store(args[0])
			if err != nil {
				return err
			}
			rows, err := s.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return w(cmd.OutOrStdout(), s.Columns(), rows)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.Where, "where", "w", nil, "condition col<op>value with op one of = != < <= > >= ~ (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Order, "order", nil, "order by col, or -col for descending (repeatable)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of rows")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "rows to skip, requires --limit")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|yaml|msgpack)")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return formats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newGetCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "get <table> <key>",
		Short: "Print the row of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(format)
			if err != nil {
				return err
			}
			s, err := a.store(args[0])
			if err != nil {
				return err
			}
			r, err := s.Get(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return w(cmd.OutOrStdout(), s.Columns(), []*Record{r})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table|yaml|msgpack)")
	return cmd
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <table> <key>...",
		Short: "Delete rows by key in one transaction",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(args[0])
			if err != nil {
				return err
			}
			if err := s.Delete(cmd.Context(), args[1:]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d key(s) from %s\n", len(args)-1, args[0])
			return nil
		},
	}
}

func newTruncateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "truncate <table>",
		Short: "Delete every row of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.store(args[0])
			if err != nil {
				return err
			}
			if err := s.Truncate(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "truncated %s\n", args[0])
			return nil
		},
	}
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the catalog table descriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result := schema.ValidateSchema(a.catalog.tables())
			if out := result.String(); out != "" {
				fmt.Fprintln(cmd.OutOrStdout(), out)
			}
			if err := result.Err(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d table(s) ok\n", len(a.catalog.Tables))
			return nil
		},
	}
}
