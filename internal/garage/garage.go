// Package garage reads and writes the local vehicle directory file used when no tracker is configured.
package garage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/garagescan/internal/types"
)

// Garage is the vehicle directory and the extra fields configured per record type
type Garage struct {
	// Vehicles is the menu offered to the model for vehicle matching
	Vehicles []types.Vehicle `yaml:"vehicles"`

	// ExtraFields maps a record type label (fuel, service, repair, upgrade) to custom field names
	ExtraFields map[string][]string `yaml:"extraFields,omitempty"`
}

// Load reads the garage file at path.
// If the file doesn't exist, an empty garage is returned.
func Load(path string) (*Garage, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Garage{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read garage file: %w", err)
	}

	var g Garage
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse garage file: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid garage file %s: %w", path, err)
	}

	return &g, nil
}

// Save writes the garage to path, creating the directory if needed
func Save(g *Garage, path string) error {
	if err := g.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create garage directory: %w", err)
	}

	data, err := yaml.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal garage: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write garage file: %w", err)
	}

	return nil
}

// Validate checks vehicle ids are positive and unique and normalizes extra-field labels
func (g *Garage) Validate() error {
	seen := make(map[int]bool, len(g.Vehicles))
	for i, v := range g.Vehicles {
		if v.ID <= 0 {
			return fmt.Errorf("vehicle %d has invalid id %d", i, v.ID)
		}
		if seen[v.ID] {
			return fmt.Errorf("vehicle id %d is listed more than once", v.ID)
		}
		seen[v.ID] = true
		g.Vehicles[i].Name = strings.TrimSpace(v.Name)
		if g.Vehicles[i].Name == "" {
			g.Vehicles[i].Name = fmt.Sprintf("Vehicle %d", v.ID)
		}
	}

	if len(g.ExtraFields) == 0 {
		return nil
	}
	normalized := make(map[string][]string, len(g.ExtraFields))
	for label, names := range g.ExtraFields {
		key := strings.ToLower(strings.TrimSpace(label))
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				normalized[key] = append(normalized[key], n)
			}
		}
	}
	g.ExtraFields = normalized
	return nil
}

// Vehicle returns the vehicle with the given id
func (g *Garage) Vehicle(id int) (types.Vehicle, bool) {
	for _, v := range g.Vehicles {
		if v.ID == id {
			return v, true
		}
	}
	return types.Vehicle{}, false
}

// ServiceExtraFields returns the extra fields relevant to service documents, keyed by record type
func (g *Garage) ServiceExtraFields() map[string][]string {
	out := make(map[string][]string)
	for _, rt := range types.RecordTypes {
		if names := g.ExtraFields[string(rt)]; len(names) > 0 {
			out[string(rt)] = names
		}
	}
	return out
}

// Labels returns the record type labels that have extra fields, sorted
func (g *Garage) Labels() []string {
	labels := make([]string, 0, len(g.ExtraFields))
	for label := range g.ExtraFields {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
