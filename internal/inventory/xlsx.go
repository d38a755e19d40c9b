package inventory

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// XLSXOptions selects the worksheet holding the inventory.
type XLSXOptions struct {
	SheetIndex int    // default 0
	SheetName  string // if set, overrides SheetIndex
}

// ReadXLSX reads every item from a headed workbook sheet.
func ReadXLSX(path string, opts XLSXOptions) ([]Item, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "inventory: xlsx open file")
	}
	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}
	if len(sheet.Rows) == 0 {
		return nil, eris.Errorf("inventory: sheet %q has no header row", sheet.Name)
	}
	h, err := parseHeader(rowToStrings(sheet.Rows[0]))
	if err != nil {
		return nil, err
	}

	var items []Item
	for i, row := range sheet.Rows[1:] {
		if it, ok := h.item(i+2, rowToStrings(row)); ok {
			items = append(items, it)
		}
	}
	return items, nil
}

// StreamXLSX reads a workbook sheet and sends items to a channel.
// Both channels are closed when processing completes.
func StreamXLSX(ctx context.Context, path string, opts XLSXOptions) (<-chan Item, <-chan error) {
	itemCh := make(chan Item, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(itemCh)
		defer close(errCh)

		items, err := ReadXLSX(path, opts)
		if err != nil {
			errCh <- err
			return
		}
		for _, it := range items {
			select {
			case itemCh <- it:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "inventory: xlsx context cancelled")
				return
			}
		}
	}()

	return itemCh, errCh
}

func getSheet(f *xlsx.File, opts XLSXOptions) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("inventory: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("inventory: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}

	return f.Sheets[opts.SheetIndex], nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}
