package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cellar-cli/internal/model"
)

var (
	resolveVarietal string
	resolveCountry  string
	resolveRegion   string
	resolveColor    string
	resolveJSON     bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve NAME VINTAGE",
	Short: "Resolve the drinking window for one wine",
	Example: `  cellar-cli resolve "Château Margaux" 2015 --region Bordeaux --country France
  cellar-cli resolve "Cloudy Bay Sauvignon Blanc" 2022 --color white --json`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := parseQuery(args[0], args[1])
		if err != nil {
			return err
		}
		q.Varietal = resolveVarietal
		q.Country = resolveCountry
		q.Region = resolveRegion
		q.Color = model.ParseColor(resolveColor)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initCascade(ctx, "resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.Resolve(ctx, q)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}
		return writeResult(cmd.OutOrStdout(), result, resolveJSON)
	},
}

func init() {
	f := resolveCmd.Flags()
	f.StringVar(&resolveVarietal, "varietal", "", "grape variety, e.g. \"Pinot Noir\"")
	f.StringVar(&resolveCountry, "country", "", "country of origin")
	f.StringVar(&resolveRegion, "region", "", "region or appellation")
	f.StringVar(&resolveColor, "color", "", "red, white or other")
	f.BoolVar(&resolveJSON, "json", false, "print the result as JSON")
	rootCmd.AddCommand(resolveCmd)
}

// parseQuery validates the two required query inputs.
func parseQuery(name, vintage string) (model.WineQuery, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.WineQuery{}, eris.New("name is required")
	}
	v, err := strconv.Atoi(strings.TrimSpace(vintage))
	if err != nil || !model.ValidVintageYear(v) {
		return model.WineQuery{}, eris.Errorf("vintage must be a four-digit year, got %q", vintage)
	}
	return model.WineQuery{Name: name, Vintage: v}, nil
}

func writeResult(w io.Writer, r model.CascadeResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	_, err := fmt.Fprintf(w, "Drinking window: %s\nPeak year:       %d\nConfidence:      %s\nSource:          %s\n",
		r.DrinkingWindow(), r.PeakYear, r.Confidence, r.Source)
	if err == nil && r.Notes != "" {
		_, err = fmt.Fprintf(w, "Notes:           %s\n", r.Notes)
	}
	return err
}
