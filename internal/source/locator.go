package source

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/sells-group/cellar-cli/internal/model"
)

// Expand fills a locator template for q. {query} is the URL-escaped
// "name vintage", {name} the raw name and {vintage} the year.
func Expand(tmpl string, q model.WineQuery) string {
	name := strings.TrimSpace(q.Name)
	vintage := strconv.Itoa(q.Vintage)
	return strings.NewReplacer(
		"{query}", escape(name+" "+vintage),
		"{name}", name,
		"{vintage}", vintage,
	).Replace(tmpl)
}

// escape percent-encodes s for use in either a path segment or a query value.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
