// Package resolve maps extracted guest names to canonical political
// identities via a manual override table and the politician registry.
package resolve

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/polittalk/talkwatch/internal/model"
)

// OverrideEntry is one pre-resolved identity in the override table.
// Entries without a politician id get a synthetic "ov-" id derived from the
// name, for politicians absent from the registry.
type OverrideEntry struct {
	PoliticianID string `yaml:"politician_id"`
	Name         string `yaml:"name"`
	PartyID      string `yaml:"party_id"`
	Party        string `yaml:"party"`
}

// Overrides is an immutable guest-name → identity table, constructed once at
// startup and injected into the resolver. It exists to correct registry
// defects: ambiguous same-name politicians, politicians the registry lacks,
// and politicians it misclassifies.
type Overrides struct {
	entries map[string]model.Identity
}

// NewOverrides builds the table from a name → entry map.
func NewOverrides(entries map[string]OverrideEntry) *Overrides {
	table := make(map[string]model.Identity, len(entries))
	for name, e := range entries {
		id := e.PoliticianID
		if id == "" {
			id = syntheticID(name)
		}
		canonical := e.Name
		if canonical == "" {
			canonical = name
		}
		table[normalizeName(name)] = model.Identity{
			PoliticianID: id,
			Name:         canonical,
			PartyID:      e.PartyID,
			Party:        e.Party,
			Source:       model.SourceOverride,
		}
	}
	return &Overrides{entries: table}
}

// LoadOverrides reads the override table from a YAML file. A missing path
// yields an empty table.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return NewOverrides(nil), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewOverrides(nil), nil
		}
		return nil, eris.Wrapf(err, "resolve: read overrides %s", path)
	}

	var entries map[string]OverrideEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "resolve: parse overrides %s", path)
	}

	return NewOverrides(entries), nil
}

// Lookup returns the pre-resolved identity for a guest name, if present.
func (o *Overrides) Lookup(name string) (model.Identity, bool) {
	id, ok := o.entries[normalizeName(name)]
	return id, ok
}

// Len returns the number of entries.
func (o *Overrides) Len() int { return len(o.entries) }

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func syntheticID(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	return "ov-" + slug
}
