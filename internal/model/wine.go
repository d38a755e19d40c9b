package model

import "strings"

// Color is the broad style of a wine.
type Color string

const (
	ColorUnknown Color = ""
	ColorRed     Color = "Red"
	ColorWhite   Color = "White"
	ColorOther   Color = "Other"
)

// ParseColor maps free-form input ("red", "Rouge", "white", "rosé") onto a Color.
// Anything unrecognised but non-empty is ColorOther.
func ParseColor(s string) Color {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ColorUnknown
	case "red", "rouge", "rosso", "tinto":
		return ColorRed
	case "white", "blanc", "bianco", "blanco":
		return ColorWhite
	default:
		return ColorOther
	}
}

// WineQuery describes the wine being estimated. Only Name and Vintage are
// required; every other field may be empty.
type WineQuery struct {
	Name     string `json:"name"`
	Vintage  int    `json:"vintage"`
	Varietal string `json:"varietal,omitempty"`
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	Color    Color  `json:"color,omitempty"`
}

// Vintages accepted from callers are four-digit years.
const (
	MinVintageYear = 1000
	MaxVintageYear = 9999
)

// ValidVintageYear reports whether v lies within [MinVintageYear, MaxVintageYear].
func ValidVintageYear(v int) bool {
	return v >= MinVintageYear && v <= MaxVintageYear
}
