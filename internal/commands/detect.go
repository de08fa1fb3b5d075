package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statementlens/internal/detect"
)

func newDetectCommand(rt *runtime) *cobra.Command {
	var pages int

	cmd := &cobra.Command{
		Use:   "detect <statement.pdf>",
		Short: "Score a PDF against every known statement format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pages") {
				pages = rt.cfg.Detection.SamplePages
			}
			catalog, err := openCatalog(rt.cfg.Detection.FormatsDir)
			if err != nil {
				return err
			}

			sample := detect.SampleText(args[0], pages)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tBANK\tPRODUCT\tSCORE")
			for _, r := range detect.Scores(sample, catalog) {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", r.Format.ID, r.Format.Bank, r.Format.ProductType, r.Score)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			best, err := detect.Detect(sample, catalog)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nDetected: %s (score %d)\n", best.Format.ID, best.Score)
			return nil
		},
	}

	cmd.Flags().IntVar(&pages, "pages", detect.DefaultSamplePages, "leading pages sampled")

	return cmd
}
