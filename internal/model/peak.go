package model

import "github.com/rotisserie/eris"

// ErrMalformedWindow marks a window whose end precedes its start. Reaching the
// peak calculator with one is an upstream logic defect, not missing data.
var ErrMalformedWindow = eris.New("malformed drinking window")

// PeakYear returns the year one third of the way into w, rounding down.
func PeakYear(w Window) (int, error) {
	if !w.Valid() {
		return 0, eris.Wrapf(ErrMalformedWindow, "peak: %d-%d", w.Start, w.End)
	}
	return w.Start + (w.End-w.Start)/3, nil
}
