package jurisdiction

import (
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/taxmap/pkg/errors"
)

// Table maps full state names to 2-letter postal codes. It is loaded once
// per run from versioned configuration and never mutated afterward, so every
// component that resolves a state sees the same frozen mapping.
type Table struct {
	version string
	codes   map[string]string
}

// tableFile is the YAML shape of a state-code table.
type tableFile struct {
	Version string            `yaml:"version"`
	States  map[string]string `yaml:"states"`
}

// NewTable creates a table from an explicit mapping. Names are normalized
// to uppercase with collapsed whitespace on insert so lookups are
// case and spacing insensitive.
func NewTable(version string, codes map[string]string) *Table {
	normalized := make(map[string]string, len(codes))
	for name, code := range codes {
		normalized[normalizeName(name)] = strings.ToUpper(strings.TrimSpace(code))
	}
	return &Table{version: version, codes: normalized}
}

// LoadTable reads a state-code table from a YAML file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}

	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", path, 0, err)
	}
	if len(file.States) == 0 {
		return nil, errors.NewConfigError("state table", "no states defined in "+path, nil)
	}

	return NewTable(file.Version, file.States), nil
}

// Code resolves a full state name to its 2-letter postal code.
// Already-resolved 2-letter codes pass through unchanged, so extractors can
// feed it either form. Unrecognized names fail with UnknownStateError.
func (t *Table) Code(name string) (string, error) {
	n := normalizeName(name)
	if n == "" {
		return "", errors.NewUnknownStateError(name)
	}

	if code, ok := t.codes[n]; ok {
		return code, nil
	}

	// Accept codes the table itself maps to.
	if len(n) == 2 {
		for _, code := range t.codes {
			if code == n {
				return n, nil
			}
		}
	}

	return "", errors.NewUnknownStateError(name)
}

// Version returns the table's configuration version string.
func (t *Table) Version() string {
	return t.version
}

// Len returns the number of state entries.
func (t *Table) Len() int {
	return len(t.codes)
}

// Entry is one state name/code pair, used when rendering the table.
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Code string `json:"code" yaml:"code"`
}

// Entries returns all entries sorted by state name.
func (t *Table) Entries() []Entry {
	entries := make([]Entry, 0, len(t.codes))
	for name, code := range t.codes {
		entries = append(entries, Entry{Name: name, Code: code})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func normalizeName(name string) string {
	return strings.ToUpper(collapseWhitespace(strings.TrimSpace(name)))
}

// DefaultTable returns the built-in table covering the 50 states plus DC.
// Deployments that need additional territories supply their own YAML table.
func DefaultTable() *Table {
	return NewTable("builtin-2024", map[string]string{
		"Alabama": "AL", "Alaska": "AK", "Arizona": "AZ", "Arkansas": "AR",
		"California": "CA", "Colorado": "CO", "Connecticut": "CT", "Delaware": "DE",
		"Florida": "FL", "Georgia": "GA", "Hawaii": "HI", "Idaho": "ID",
		"Illinois": "IL", "Indiana": "IN", "Iowa": "IA", "Kansas": "KS",
		"Kentucky": "KY", "Louisiana": "LA", "Maine": "ME", "Maryland": "MD",
		"Massachusetts": "MA", "Michigan": "MI", "Minnesota": "MN", "Mississippi": "MS",
		"Missouri": "MO", "Montana": "MT", "Nebraska": "NE", "Nevada": "NV",
		"New Hampshire": "NH", "New Jersey": "NJ", "New Mexico": "NM", "New York": "NY",
		"North Carolina": "NC", "North Dakota": "ND", "Ohio": "OH", "Oklahoma": "OK",
		"Oregon": "OR", "Pennsylvania": "PA", "Rhode Island": "RI", "South Carolina": "SC",
		"South Dakota": "SD", "Tennessee": "TN", "Texas": "TX", "Utah": "UT",
		"Vermont": "VT", "Virginia": "VA", "Washington": "WA", "West Virginia": "WV",
		"Wisconsin": "WI", "Wyoming": "WY", "District of Columbia": "DC",
	})
}
