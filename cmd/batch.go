package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cellar-cli/internal/inventory"
	"github.com/sells-group/cellar-cli/internal/model"
)

var (
	batchLimit       int
	batchConcurrency int
	batchOutput      string
	batchFormat      string
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE",
	Short: "Resolve drinking windows for every wine in a cellar inventory",
	Long:  "Reads a CSV, TSV or XLSX inventory with a header row (name, vintage, varietal, country, region, color) and writes one result per wine.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if batchFormat != "jsonl" && batchFormat != "csv" {
			return eris.Errorf("unknown --format %q (want jsonl or csv)", batchFormat)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.Concurrency = batchConcurrency
		}
		env, err := initCascade(ctx, "batch")
		if err != nil {
			return err
		}
		defer env.Close()

		items, err := inventory.Collect(inventory.Open(ctx, args[0]))
		if err != nil {
			return eris.Wrap(err, "read inventory")
		}
		if batchLimit > 0 && len(items) > batchLimit {
			items = items[:batchLimit]
		}

		out := cmd.OutOrStdout()
		if batchOutput != "" {
			f, err := os.Create(batchOutput)
			if err != nil {
				return eris.Wrapf(err, "create %s", batchOutput)
			}
			defer f.Close()
			out = f
		}

		runID := uuid.NewString()
		records, batchErr := processBatch(ctx, runID, items, cfg.Batch.Concurrency, env.Orchestrator.Resolve)
		write := writeJSONL
		if batchFormat == "csv" {
			write = writeCSV
		}
		if err := write(out, records); err != nil {
			return err
		}
		return batchErr
	},
}

func init() {
	f := batchCmd.Flags()
	f.IntVar(&batchLimit, "limit", 0, "max number of wines to resolve (0 = all)")
	f.IntVar(&batchConcurrency, "concurrency", 0, "wines resolved at once (default from config)")
	f.StringVarP(&batchOutput, "output", "o", "", "output file (default stdout)")
	f.StringVar(&batchFormat, "format", "jsonl", "output format: jsonl or csv")
	rootCmd.AddCommand(batchCmd)
}

// resolveFunc is the callback signature for resolving one wine.
type resolveFunc func(ctx context.Context, q model.WineQuery) (model.CascadeResult, error)

// batchRecord is one output row. Error is set instead of the window fields
// when resolution failed.
type batchRecord struct {
	RunID          string           `json:"run_id"`
	Line           int              `json:"line"`
	Name           string           `json:"name"`
	Vintage        int              `json:"vintage"`
	DrinkingWindow string           `json:"drinking_window,omitempty"`
	PeakYear       int              `json:"peak_year,omitempty"`
	Confidence     model.Confidence `json:"confidence,omitempty"`
	Source         string           `json:"source,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// processBatch resolves items with bounded concurrency and returns records in
// input order. Individual failures are recorded, not returned. Once ctx ends
// no further items are started; the records resolved so far come back with
// the context error.
func processBatch(ctx context.Context, runID string, items []inventory.Item, concurrency int, resolve resolveFunc) ([]batchRecord, error) {
	if len(items) == 0 {
		zap.L().Info("inventory has no resolvable wines")
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	log := zap.L().With(zap.String("run_id", runID))
	log.Info("processing batch",
		zap.Int("wines", len(items)),
		zap.Int("concurrency", concurrency),
	)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	records := make([]batchRecord, len(items))
	started := make([]bool, len(items))
	var succeeded, failed atomic.Int64

	for i, it := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			started[i] = true
			rec := batchRecord{RunID: runID, Line: it.Line, Name: it.Query.Name, Vintage: it.Query.Vintage}

			r, err := resolve(gctx, it.Query)
			if err != nil {
				failed.Add(1)
				rec.Error = err.Error()
				log.Error("resolve failed",
					zap.Int("line", it.Line),
					zap.String("wine", it.Query.Name),
					zap.Error(err),
				)
			} else {
				succeeded.Add(1)
				rec.DrinkingWindow = r.DrinkingWindow()
				rec.PeakYear = r.PeakYear
				rec.Confidence = r.Confidence
				rec.Source = r.Source
				rec.Notes = r.Notes
			}
			records[i] = rec
			return nil // don't abort batch on individual failure
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "batch processing")
	}

	out := records[:0]
	for i, rec := range records {
		if started[i] {
			out = append(out, rec)
		}
	}

	log.Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Int("skipped", len(items)-len(out)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if err := ctx.Err(); err != nil {
		return out, eris.Wrap(err, "batch interrupted")
	}
	return out, nil
}

func writeJSONL(w io.Writer, records []batchRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return eris.Wrap(err, "write jsonl")
		}
	}
	return nil
}

var csvHeader = []string{"line", "name", "vintage", "drinking_window", "peak_year", "confidence", "source", "notes", "error"}

func writeCSV(w io.Writer, records []batchRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return eris.Wrap(err, "write csv header")
	}
	for _, r := range records {
		peak := ""
		if r.PeakYear != 0 {
			peak = strconv.Itoa(r.PeakYear)
		}
		row := []string{
			strconv.Itoa(r.Line), r.Name, strconv.Itoa(r.Vintage),
			r.DrinkingWindow, peak, string(r.Confidence), r.Source, r.Notes, r.Error,
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "flush csv")
	}
	return nil
}
