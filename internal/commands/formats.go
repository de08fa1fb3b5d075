package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statementlens/internal/parser"
)

func newFormatsCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the statement formats that can be detected",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := openCatalog(rt.cfg.Detection.FormatsDir)
			if err != nil {
				return err
			}
			parsers := parser.DefaultRegistry()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tBANK\tPRODUCT\tPARSER")
			for _, d := range catalog.All() {
				supported := "yes"
				if _, err := parsers.Lookup(d.ID); err != nil {
					supported = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.ID, d.Bank, d.ProductType, supported)
			}
			return w.Flush()
		},
	}
}
