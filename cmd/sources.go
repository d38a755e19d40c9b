package main

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cellar-cli/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the sources the cascade consults, in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := source.LoadDefinitions(cfg.Cascade.SourcesFile)
		if err != nil {
			return eris.Wrap(err, "load source definitions")
		}
		return writeSources(cmd.OutOrStdout(), defs, buildRetrievers(cfg))
	},
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func writeSources(w io.Writer, defs []source.Definition, rs source.Retrievers) error {
	ordered := slices.Clone(defs)
	slices.SortStableFunc(ordered, func(a, b source.Definition) int { return cmp.Compare(a.Tier, b.Tier) })

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tNAME\tLOOKUP\tCONFIDENCE\tSTATUS\tLABEL")
	for _, d := range ordered {
		status := "active"
		if r, ok := rs[d.Lookup]; !ok || r == nil {
			status = "disabled"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", d.Tier, d.Name, d.Lookup, d.Confidence, status, d.Label)
	}
	return tw.Flush()
}
