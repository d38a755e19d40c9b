package inventory

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool

	onDone func()
}

// StreamCSV reads a headed CSV inventory and sends items to a channel.
// Caller must consume the item channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan Item, <-chan error) {
	itemCh := make(chan Item, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(itemCh)
		defer close(errCh)
		if opts.onDone != nil {
			defer opts.onDone()
		}

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow ragged rows

		var h header
		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "inventory: csv context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				if h == nil {
					errCh <- eris.New("inventory: csv has no header row")
				}
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "inventory: csv read row")
				return
			}
			line, _ := reader.FieldPos(0)

			if h == nil {
				if h, err = parseHeader(record); err != nil {
					errCh <- err
					return
				}
				continue
			}

			it, ok := h.item(line, record)
			if !ok {
				continue
			}
			select {
			case itemCh <- it:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "inventory: csv context cancelled")
				return
			}
		}
	}()

	return itemCh, errCh
}
