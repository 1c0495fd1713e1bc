package main

import (
	"encoding/json"

	"github.com/pgfluent/pgfluent"
	"github.com/spf13/cobra"
)

var queryParams []string

var QueryCmd = &cobra.Command{
	Use:   "query SQL",
	Short: "Run a query and print the decoded rows",
	Long: `Run SQL and print each decoded row as a JSON object. Parameters are given
as name=value where value is JSON. Enum and composite columns need a registered
codec; cast them to text to print their literal.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	QueryCmd.Flags().StringArrayVarP(&queryParams, "param", "p", nil, "Parameter as name=value (repeatable)")
}

func runQuery(cmd *cobra.Command, args []string) error {
	params, err := parseParams(queryParams)
	if err != nil {
		return err
	}

	s, err := openSession(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer s.close()

	db, err := s.db()
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	return db.Raw(args[0]).Params(params).Stream(cmd.Context(), func(row pgfluent.Row) error {
		return enc.Encode(row)
	}).Err
}
