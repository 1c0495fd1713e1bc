package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var DecodeCmd = &cobra.Command{
	Use:   "decode TYPE TEXT",
	Short: "Decode a text literal of a type",
	Long: `Decode a value in the PostgreSQL text format, e.g. '{1,2,NULL}' of type
int4[], and print the Go value it decodes to. Enum and composite types decode
only when a codec is registered, so the command is mostly useful for standard
types and arrays of them.`,
	Args: cobra.ExactArgs(2),
	RunE: runDecode,
}

func runDecode(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()

	v, err := s.registry.DecodeText(args[1], args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%#v\n", v)
	if text, err := s.registry.EncodeText(v, args[0]); err == nil && text != nil {
		fmt.Fprintf(out, "%s\n", text)
	}
	return nil
}
