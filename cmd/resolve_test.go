package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cellar-cli/internal/model"
)

func sampleResult() model.CascadeResult {
	return model.CascadeResult{
		WindowEstimate: model.WindowEstimate{
			Window:     model.Window{Start: 2025, End: 2060},
			Confidence: model.ConfidenceHigh,
			Source:     "Robert Parker Wine Advocate",
			Notes:      "Professional critic assessment",
		},
		PeakYear: 2036,
	}
}

func TestParseQuery(t *testing.T) {
	q, err := parseQuery("  Château Margaux ", " 2015")
	require.NoError(t, err)
	assert.Equal(t, model.WineQuery{Name: "Château Margaux", Vintage: 2015}, q)

	tests := []struct {
		name, vintage, want string
	}{
		{"", "2015", "name is required"},
		{"   ", "2015", "name is required"},
		{"Margaux", "", "vintage must be a four-digit year"},
		{"Margaux", "NV", "vintage must be a four-digit year"},
		{"Margaux", "-3", "vintage must be a four-digit year"},
		{"Margaux", "0", "vintage must be a four-digit year"},
		{"Margaux", "815", "vintage must be a four-digit year"},
		{"Margaux", "20150", "vintage must be a four-digit year"},
		{"Margaux", "9223372036854775800", "vintage must be a four-digit year"},
	}
	for _, tt := range tests {
		_, err := parseQuery(tt.name, tt.vintage)
		require.Error(t, err, "%q %q", tt.name, tt.vintage)
		assert.Contains(t, err.Error(), tt.want)
	}
}

func TestWriteResult_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), false))

	out := buf.String()
	assert.Contains(t, out, "Drinking window: 2025-2060\n")
	assert.Contains(t, out, "Peak year:       2036\n")
	assert.Contains(t, out, "Confidence:      high\n")
	assert.Contains(t, out, "Source:          Robert Parker Wine Advocate\n")
	assert.Contains(t, out, "Notes:           Professional critic assessment\n")
}

func TestWriteResult_TextNoNotes(t *testing.T) {
	r := sampleResult()
	r.Notes = ""
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, r, false))
	assert.NotContains(t, buf.String(), "Notes:")
}

func TestWriteResult_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, sampleResult(), true))

	var got model.CascadeResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleResult(), got)
	assert.Contains(t, buf.String(), `"peak_year": 2036`)
	assert.Contains(t, buf.String(), `"start_year": 2025`)
}
