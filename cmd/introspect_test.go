package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cellar-cli/internal/rules"
	"github.com/sells-group/cellar-cli/internal/source"
)

func TestWriteSources(t *testing.T) {
	rs := source.Retrievers{source.KindPage: source.PageRetriever{}}
	var buf bytes.Buffer
	require.NoError(t, writeSources(&buf, source.DefaultDefinitions(), rs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "TIER"))
	assert.Contains(t, lines[1], "cellartracker")
	assert.Contains(t, lines[1], "active")
	assert.Contains(t, lines[3], "erobertparker")
	assert.Contains(t, lines[3], "disabled")
	assert.True(t, strings.HasPrefix(lines[9], "2"))
}

func TestWriteRules(t *testing.T) {
	var buf bytes.Buffer
	all := rules.DefaultRules()
	require.NoError(t, writeRules(&buf, all))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(all)+1)
	assert.Contains(t, lines[1], "first_growth")
	assert.Contains(t, lines[1], "vintage+8..vintage+40")
	assert.Contains(t, lines[1], "medium")
}
