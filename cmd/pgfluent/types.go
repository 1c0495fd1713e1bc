package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pgfluent/pgfluent/pgcodec"
	"github.com/spf13/cobra"
)

var showArrays bool

var TypesCmd = &cobra.Command{
	Use:   "types [filter]",
	Short: "List the types of the registry",
	Long:  "List the types of the registry with their category and structure. The optional filter selects types whose name contains it.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTypes,
}

func init() {
	TypesCmd.Flags().BoolVar(&showArrays, "arrays", false, "Include array types")
}

func runTypes(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer s.close()

	var filter string
	if len(args) > 0 {
		filter = args[0]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tOID\tCATEGORY\tDETAILS")
	for _, ti := range s.registry.Types() {
		if ti.Category == pgcodec.CategoryArray && !showArrays {
			continue
		}
		if !strings.Contains(ti.Name, filter) {
			continue
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", ti.Name, ti.OID, ti.Category, typeDetails(ti))
	}
	return w.Flush()
}

func typeDetails(ti pgcodec.TypeInfo) string {
	switch ti.Category {
	case pgcodec.CategoryArray:
		return ti.Elem + "[]"
	case pgcodec.CategoryEnum:
		return strings.Join(ti.Labels, ", ")
	case pgcodec.CategoryComposite:
		attrs := make([]string, len(ti.Attributes))
		for i, a := range ti.Attributes {
			attrs[i] = a.Name + " " + a.Type
		}
		return "(" + strings.Join(attrs, ", ") + ")"
	}
	return ""
}
