package forecast

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNoGroups is returned when a definition file declares no groups.
	ErrNoGroups = errors.New("no groups defined")
	// ErrEmptyGroup is returned for a group without a name or members.
	ErrEmptyGroup = errors.New("group has no name or no members")
	// ErrDuplicateGroup is returned when two groups share a name.
	ErrDuplicateGroup = errors.New("duplicate group name")
	// ErrOverlappingGroups is returned when a member key belongs to two groups.
	ErrOverlappingGroups = errors.New("member key belongs to more than one group")
)

// Group is a named partition of source records defined by its member keys.
type Group struct {
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// GroupDefinitions is the static group configuration supplied at startup.
type GroupDefinitions struct {
	// InsertAfter names the sheet new group sheets are placed after.
	InsertAfter string  `yaml:"insert_after"`
	Groups      []Group `yaml:"groups"`
}

// LoadGroups reads group definitions from a YAML file and validates them.
func LoadGroups(path string) (*GroupDefinitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read group definitions: %w", err)
	}

	var defs GroupDefinitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("failed to parse group definitions: %w", err)
	}

	if err := defs.Validate(); err != nil {
		return nil, err
	}

	return &defs, nil
}

// Validate checks that groups are named, non-empty, unique and disjoint.
// Member keys are normalized in place.
func (d *GroupDefinitions) Validate() error {
	if len(d.Groups) == 0 {
		return ErrNoGroups
	}

	names := make(map[string]bool, len(d.Groups))
	owner := make(map[string]string)

	for i := range d.Groups {
		g := &d.Groups[i]
		g.Name = strings.TrimSpace(g.Name)
		if g.Name == "" || len(g.Members) == 0 {
			return fmt.Errorf("group #%d %q: %w", i+1, g.Name, ErrEmptyGroup)
		}
		if names[g.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateGroup, g.Name)
		}
		names[g.Name] = true

		for j, m := range g.Members {
			key := NormalizeKey(m)
			if key == "" {
				return fmt.Errorf("group %q member #%d: %w", g.Name, j+1, ErrEmptyGroup)
			}
			if prev, ok := owner[key]; ok && prev != g.Name {
				return fmt.Errorf("%w: %s in %q and %q", ErrOverlappingGroups, key, prev, g.Name)
			}
			owner[key] = g.Name
			g.Members[j] = key
		}
	}

	return nil
}

// Names returns the group names in configuration order.
func (d *GroupDefinitions) Names() []string {
	names := make([]string, 0, len(d.Groups))
	for _, g := range d.Groups {
		names = append(names, g.Name)
	}
	return names
}

// membership maps each normalized member key to its group name.
func (d *GroupDefinitions) membership() map[string]string {
	m := make(map[string]string)
	for _, g := range d.Groups {
		for _, key := range g.Members {
			m[NormalizeKey(key)] = g.Name
		}
	}
	return m
}
