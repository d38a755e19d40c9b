package source

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cellar-cli/internal/extract"
	"github.com/sells-group/cellar-cli/internal/model"
)

// Kind names the lookup capability a source uses to obtain text.
type Kind string

const (
	// KindPage fetches the locator URL directly.
	KindPage Kind = "page"
	// KindReader renders the locator URL through Jina Reader.
	KindReader Kind = "reader"
	// KindSearch runs the locator as a Jina web search limited to Site.
	KindSearch Kind = "search"
	// KindAnswer sends the locator as a prompt to Perplexity.
	KindAnswer Kind = "answer"
)

func (k Kind) valid() bool {
	switch k {
	case KindPage, KindReader, KindSearch, KindAnswer:
		return true
	}
	return false
}

// Definition configures one source.
type Definition struct {
	Name       string           `yaml:"name"`
	Label      string           `yaml:"label"`
	Tier       Tier             `yaml:"tier"`
	Confidence model.Confidence `yaml:"confidence"`
	Lookup     Kind             `yaml:"lookup"`
	Locator    string           `yaml:"locator"`
	Site       string           `yaml:"site,omitempty"`
	Patterns   []string         `yaml:"patterns,omitempty"`
	Notes      string           `yaml:"notes,omitempty"`
	// KeepDerivedConfidence stops windows derived from a single year or a
	// duration from being capped at medium.
	KeepDerivedConfidence bool `yaml:"keep_derived_confidence,omitempty"`
}

const (
	defaultSearchLocator = `"{name}" {vintage}`
	defaultAnswerLocator = `What drinking window do professional critics give {name} {vintage}? ` +
		`Reply only in the form "Drink: YYYY-YYYY", or "unknown".`
)

// withDefaults fills unset fields.
func (d Definition) withDefaults() Definition {
	d.Name = strings.TrimSpace(d.Name)
	if d.Label == "" {
		d.Label = d.Name
	}
	d.Confidence = model.Confidence(strings.ToLower(string(d.Confidence)))
	if d.Tier == 0 {
		d.Tier = Tier2
		if d.Confidence == model.ConfidenceHigh {
			d.Tier = Tier1
		}
	}
	if d.Confidence == "" {
		d.Confidence = model.ConfidenceMedium
		if d.Tier == Tier1 {
			d.Confidence = model.ConfidenceHigh
		}
	}
	if d.Locator == "" {
		switch d.Lookup {
		case KindSearch:
			d.Locator = defaultSearchLocator
		case KindAnswer:
			d.Locator = defaultAnswerLocator
		}
	}
	return d
}

// Validate reports the first problem with d.
func (d Definition) Validate() error {
	switch {
	case d.Name == "":
		return eris.New("source: definition without name")
	case !d.Lookup.valid():
		return eris.Errorf("source: %s: unknown lookup %q", d.Name, d.Lookup)
	case !d.Confidence.Valid():
		return eris.Errorf("source: %s: unknown confidence %q", d.Name, d.Confidence)
	case d.Tier < Tier1:
		return eris.Errorf("source: %s: tier must be 1 or more", d.Name)
	case d.Locator == "":
		return eris.Errorf("source: %s: locator required for %s lookup", d.Name, d.Lookup)
	}
	for _, p := range d.Patterns {
		if _, ok := extract.Lookup(p); !ok {
			return eris.Errorf("source: %s: unknown pattern %q", d.Name, p)
		}
	}
	return nil
}

// ParseDefinitions decodes a YAML document with a top-level "sources" list,
// applies defaults and validates every entry. An empty list yields
// DefaultDefinitions.
func ParseDefinitions(data []byte) ([]Definition, error) {
	var doc struct {
		Sources []Definition `yaml:"sources"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, eris.Wrap(err, "source: parse definitions")
	}
	if len(doc.Sources) == 0 {
		return DefaultDefinitions(), nil
	}

	seen := make(map[string]bool, len(doc.Sources))
	out := make([]Definition, 0, len(doc.Sources))
	for _, d := range doc.Sources {
		d = d.withDefaults()
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seen[d.Name] {
			return nil, eris.Errorf("source: duplicate definition %q", d.Name)
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out, nil
}

// LoadDefinitions reads definitions from path. An empty path yields
// DefaultDefinitions.
func LoadDefinitions(path string) ([]Definition, error) {
	if path == "" {
		return DefaultDefinitions(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read definitions %s", path)
	}
	return ParseDefinitions(data)
}
