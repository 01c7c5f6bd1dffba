package sds

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"sdskataster/internal"
)

//go:embed hazard_pictograms.yaml
var defaultTableYAML []byte

// DefaultTable is the built-in derivation table. It is never mutated.
var DefaultTable = mustParseTable(defaultTableYAML)

var (
	reHazardCode    = regexp.MustCompile(`^H\d{3}$`)
	rePictogramCode = regexp.MustCompile(`^GHS\d{2}$`)
)

// PictogramTable maps hazard statements to the pictograms they imply.
type PictogramTable struct {
	codes map[string][]string
}

// ParsePictogramTable reads a YAML document of named groups, each mapping
// hazard codes to pictogram lists.
func ParsePictogramTable(data []byte) (*PictogramTable, error) {
	var groups map[string]map[string][]string
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parse pictogram table: %w", err)
	}
	t := &PictogramTable{codes: map[string][]string{}}
	for group, entries := range groups {
		for h, pictos := range entries {
			if !reHazardCode.MatchString(h) {
				return nil, fmt.Errorf("pictogram table %s: bad hazard code %q", group, h)
			}
			for _, p := range pictos {
				if !rePictogramCode.MatchString(p) {
					return nil, fmt.Errorf("pictogram table %s: bad pictogram %q for %s", group, p, h)
				}
			}
			t.codes[h] = append(t.codes[h], pictos...)
		}
	}
	return t, nil
}

// LoadPictogramTable reads a table file. An empty path yields DefaultTable.
func LoadPictogramTable(path string) (*PictogramTable, error) {
	if path == "" {
		return DefaultTable, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pictogram table %s: %w", path, err)
	}
	return ParsePictogramTable(data)
}

func mustParseTable(data []byte) *PictogramTable {
	t, err := ParsePictogramTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the pictograms for one hazard code, nil if unknown.
func (t *PictogramTable) Lookup(code string) []string {
	return t.codes[code]
}

func (t *PictogramTable) Has(code string) bool {
	_, ok := t.codes[code]
	return ok
}

// HazardCodes lists the table keys in sorted order.
func (t *PictogramTable) HazardCodes() []string {
	out := make([]string, 0, len(t.codes))
	for h := range t.codes {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}

// Derive unions the pictograms of every hazard statement. Codes missing from
// the table contribute nothing.
func (t *PictogramTable) Derive(hazards internal.CodeSet) internal.CodeSet {
	out := internal.CodeSet{}
	for h := range hazards {
		for _, p := range t.codes[h] {
			out.Add(p)
		}
	}
	return out
}
