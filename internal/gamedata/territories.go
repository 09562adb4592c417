// Package gamedata resolves game territory identifiers to human-readable
// zone names from a YAML data file.
package gamedata

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Territories maps territory ids to zone names.
type Territories struct {
	names map[uint32]string
}

// New returns a table over the given names. A nil map yields a table that
// resolves nothing.
func New(names map[uint32]string) *Territories {
	return &Territories{names: names}
}

// Load reads a territory table from a YAML file of the form:
//
//	128: "Limsa Lominsa Upper Decks"
//	129: "Limsa Lominsa Lower Decks"
func Load(path string) (*Territories, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	names := make(map[uint32]string)
	if err := yaml.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse territories %s: %w", path, err)
	}
	return New(names), nil
}

// Lookup returns the zone name for id. ok is false for unknown territories
// (including id 0, "not in a zone").
func (t *Territories) Lookup(id uint32) (name string, ok bool) {
	name, ok = t.names[id]
	if name == "" {
		return "", false
	}
	return name, ok
}
