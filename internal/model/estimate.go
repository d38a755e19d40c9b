package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Confidence is the qualitative reliability of an estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders confidences: high > medium > low. Unknown values rank below low.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether c is one of the three defined levels.
func (c Confidence) Valid() bool { return c.Rank() > 0 }

// Cap returns the lower of c and limit.
func (c Confidence) Cap(limit Confidence) Confidence {
	if limit.Valid() && limit.Rank() < c.Rank() {
		return limit
	}
	return c
}

// ParseConfidence parses "high", "medium" or "low" (case-insensitive).
func ParseConfidence(s string) (Confidence, error) {
	c := Confidence(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", eris.Errorf("model: unknown confidence %q", s)
	}
	return c, nil
}

// Window is an inclusive calendar-year drinking range.
type Window struct {
	Start int `json:"start_year"`
	End   int `json:"end_year"`
}

// Valid reports whether Start <= End.
func (w Window) Valid() bool { return w.Start <= w.End }

// String renders the window in its external "YYYY-YYYY" form.
func (w Window) String() string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

// WindowEstimate is what every source adapter and the fallback rules produce.
type WindowEstimate struct {
	Window     Window     `json:"window"`
	Confidence Confidence `json:"confidence"`
	Source     string     `json:"source"`
	Notes      string     `json:"notes,omitempty"`
}

// CascadeResult is the final, attributed estimate handed to collaborators.
type CascadeResult struct {
	WindowEstimate
	PeakYear int `json:"peak_year"`
}

// DrinkingWindow returns the serialized "YYYY-YYYY" window.
func (r CascadeResult) DrinkingWindow() string { return r.Window.String() }
