// Package inventory reads cellar inventories (CSV or XLSX) into wine queries.
//
// The first row is a header. Recognised columns are name, vintage, varietal,
// country, region and color, plus a few common aliases ("wine", "year",
// "grape", "appellation", "colour"). Unknown columns are ignored. Rows without
// a usable name or vintage are skipped with a warning.
package inventory

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Item is one inventory row. Line is 1-based and counts the header.
type Item struct {
	Line  int
	Query model.WineQuery
}

const (
	colName     = "name"
	colVintage  = "vintage"
	colVarietal = "varietal"
	colCountry  = "country"
	colRegion   = "region"
	colColor    = "color"
)

var aliases = map[string]string{
	"name":        colName,
	"wine":        colName,
	"wine name":   colName,
	"vintage":     colVintage,
	"year":        colVintage,
	"varietal":    colVarietal,
	"grape":       colVarietal,
	"variety":     colVarietal,
	"country":     colCountry,
	"region":      colRegion,
	"appellation": colRegion,
	"color":       colColor,
	"colour":      colColor,
	"type":        colColor,
}

// header maps a column kind to its index in a row.
type header map[string]int

func parseHeader(cells []string) (header, error) {
	h := header{}
	for i, c := range cells {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(c, "\ufeff")))
		kind, ok := aliases[key]
		if !ok {
			continue
		}
		if _, dup := h[kind]; !dup {
			h[kind] = i
		}
	}
	for _, required := range []string{colName, colVintage} {
		if _, ok := h[required]; !ok {
			return nil, eris.Errorf("inventory: header has no %s column", required)
		}
	}
	return h, nil
}

func (h header) cell(cells []string, kind string) string {
	i, ok := h[kind]
	if !ok || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// item converts a data row. It reports false, after logging, for rows that
// cannot be resolved.
func (h header) item(line int, cells []string) (Item, bool) {
	name := h.cell(cells, colName)
	rawVintage := h.cell(cells, colVintage)
	if name == "" && rawVintage == "" {
		// Blank spreadsheet rows are common and not worth a warning.
		return Item{}, false
	}
	vintage, err := parseVintage(rawVintage)
	if name == "" || err != nil {
		zap.L().Warn("inventory: skipping row",
			zap.Int("line", line),
			zap.String("name", name),
			zap.String("vintage", rawVintage),
		)
		return Item{}, false
	}
	return Item{
		Line: line,
		Query: model.WineQuery{
			Name:     name,
			Vintage:  vintage,
			Varietal: h.cell(cells, colVarietal),
			Country:  h.cell(cells, colCountry),
			Region:   h.cell(cells, colRegion),
			Color:    model.ParseColor(h.cell(cells, colColor)),
		},
	}, true
}

// parseVintage accepts "2015" and the "2015.0" spreadsheets produce for
// numeric cells. Anything but a four-digit year is rejected.
func parseVintage(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f < model.MinVintageYear || f > model.MaxVintageYear || f != float64(int(f)) {
			return 0, eris.Errorf("inventory: invalid vintage %q", s)
		}
		v = int(f)
	}
	if !model.ValidVintageYear(v) {
		return 0, eris.Errorf("inventory: vintage %q is not a four-digit year", s)
	}
	return v, nil
}

// Open streams the inventory at path, choosing the reader by extension:
// .xlsx is read as a workbook, .tsv as tab-separated and anything else as CSV.
func Open(ctx context.Context, path string) (<-chan Item, <-chan error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return StreamXLSX(ctx, path, XLSXOptions{})
	case ".tsv":
		return streamFile(ctx, path, CSVOptions{Delimiter: '\t'})
	default:
		return streamFile(ctx, path, CSVOptions{})
	}
}

func streamFile(ctx context.Context, path string, opts CSVOptions) (<-chan Item, <-chan error) {
	f, err := os.Open(path)
	if err != nil {
		itemCh := make(chan Item)
		errCh := make(chan error, 1)
		errCh <- eris.Wrapf(err, "inventory: open %s", path)
		close(itemCh)
		close(errCh)
		return itemCh, errCh
	}
	opts.onDone = func() { f.Close() }
	return StreamCSV(ctx, f, opts)
}

// Collect drains a stream into a slice.
func Collect(itemCh <-chan Item, errCh <-chan error) ([]Item, error) {
	var items []Item
	for it := range itemCh {
		items = append(items, it)
	}
	for err := range errCh {
		if err != nil {
			return items, err
		}
	}
	return items, nil
}
