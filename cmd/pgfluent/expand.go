package main

import (
	"fmt"

	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/spf13/cobra"
)

var (
	expandParams     []string
	expandPositional bool
)

var ExpandCmd = &cobra.Command{
	Use:   "expand SQL",
	Short: "Expand the parameters of a query",
	Long: `Expand the named parameters of SQL into the statement that would be run.
Parameters are given as name=value where value is JSON, e.g.

  pgfluent expand --offline 'select * from t where id = any(:ids)' --param 'ids=[1,2,3]'`,
	Args: cobra.ExactArgs(1),
	RunE: runExpand,
}

func init() {
	ExpandCmd.Flags().StringArrayVarP(&expandParams, "param", "p", nil, "Parameter as name=value (repeatable)")
	ExpandCmd.Flags().BoolVar(&expandPositional, "positional", false, "Rebind to $1, $2, ... placeholders")
}

func runExpand(cmd *cobra.Command, args []string) error {
	params, err := parseParams(expandParams)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()

	expander := pgcodec.NewExpander(s.registry)
	out := cmd.OutOrStdout()

	if expandPositional {
		sql, flat, err := expander.ExpandPositional(args[0], params)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, sql)
		for i, v := range flat {
			fmt.Fprintf(out, "$%d = %s\n", i+1, formatValue(v))
		}
		return nil
	}

	sql, flat, err := expander.Expand(args[0], params)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, sql)
	fmt.Fprint(out, formatParams(flat))
	return nil
}
