package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/cellar-cli/internal/model"
	"github.com/sells-group/cellar-cli/internal/rules"
)

var (
	rulesName     string
	rulesVintage  int
	rulesVarietal string
	rulesCountry  string
	rulesRegion   string
	rulesColor    string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Show the fallback rules, or which one applies to a wine",
	Example: `  cellar-cli rules
  cellar-cli rules --name "Barolo Riserva" --vintage 2013 --country Italy`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := rules.New(rules.WithMinVintage(cfg.Rules.MinVintage))
		if rulesName == "" {
			return writeRules(cmd.OutOrStdout(), engine.Rules())
		}

		q, err := parseQuery(rulesName, strconv.Itoa(rulesVintage))
		if err != nil {
			return err
		}
		q.Varietal = rulesVarietal
		q.Country = rulesCountry
		q.Region = rulesRegion
		q.Color = model.ParseColor(rulesColor)
		est, rule := engine.Explain(q)

		peak, err := model.PeakYear(est.Window)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Rule: %s\n", rule)
		return writeResult(cmd.OutOrStdout(), model.CascadeResult{WindowEstimate: est, PeakYear: peak}, false)
	},
}

func init() {
	f := rulesCmd.Flags()
	f.StringVar(&rulesName, "name", "", "wine name to evaluate")
	f.IntVar(&rulesVintage, "vintage", 0, "vintage year to evaluate")
	f.StringVar(&rulesVarietal, "varietal", "", "grape variety")
	f.StringVar(&rulesCountry, "country", "", "country of origin")
	f.StringVar(&rulesRegion, "region", "", "region or appellation")
	f.StringVar(&rulesColor, "color", "", "red, white or other")
	rootCmd.AddCommand(rulesCmd)
}

func writeRules(w io.Writer, rs []rules.Rule) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tRULE\tWINDOW\tCONFIDENCE")
	for i, r := range rs {
		fmt.Fprintf(tw, "%d\t%s\tvintage+%d..vintage+%d\t%s\n", i+1, r.Name, r.MinYears, r.MaxYears, r.Confidence)
	}
	return tw.Flush()
}
