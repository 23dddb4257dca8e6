package workflow

import (
	_ "embed"
	"fmt"
	"sort"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is the immutable table of task types and their status sequences.
// It is built once at startup and never mutated.
type Catalog struct {
	types []TaskType
	index map[int]int
}

type catalogFile struct {
	Types []TaskType `yaml:"types"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads a YAML catalog from path. An empty path yields the default catalog.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return NewCatalog(f.Types)
}

// NewCatalog validates the given types and builds a catalog from them.
//
// Every type must have a unique positive id and a non-empty status sequence
// numbered 1..n with exactly one final status, which must be the last one.
func NewCatalog(types []TaskType) (*Catalog, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("catalog defines no task types")
	}

	c := &Catalog{
		types: make([]TaskType, 0, len(types)),
		index: make(map[int]int, len(types)),
	}
	for _, tt := range types {
		if tt.TypeID <= 0 {
			return nil, fmt.Errorf("task type %q: id must be positive", tt.Name)
		}
		if tt.Name == "" {
			return nil, fmt.Errorf("task type %d: name is required", tt.TypeID)
		}
		if _, dup := c.index[tt.TypeID]; dup {
			return nil, fmt.Errorf("task type %d: duplicate id", tt.TypeID)
		}
		if len(tt.Statuses) == 0 {
			return nil, fmt.Errorf("task type %d: no statuses defined", tt.TypeID)
		}

		statuses := make([]StatusDefinition, len(tt.Statuses))
		copy(statuses, tt.Statuses)
		sort.Slice(statuses, func(i, j int) bool { return statuses[i].StatusID < statuses[j].StatusID })

		finals := 0
		for i := range statuses {
			s := &statuses[i]
			if s.StatusID != i+1 {
				return nil, fmt.Errorf("task type %d: status ids must be 1..%d without gaps, found %d", tt.TypeID, len(statuses), s.StatusID)
			}
			if s.Name == "" {
				return nil, fmt.Errorf("task type %d status %d: name is required", tt.TypeID, s.StatusID)
			}
			s.TypeID = tt.TypeID
			if s.IsFinal {
				finals++
			}
		}
		if finals != 1 {
			return nil, fmt.Errorf("task type %d: expected exactly one final status, found %d", tt.TypeID, finals)
		}
		if !statuses[len(statuses)-1].IsFinal {
			return nil, fmt.Errorf("task type %d: final status must be the last in the sequence", tt.TypeID)
		}

		c.index[tt.TypeID] = len(c.types)
		c.types = append(c.types, TaskType{TypeID: tt.TypeID, Name: tt.Name, Statuses: statuses})
	}

	sort.Slice(c.types, func(i, j int) bool { return c.types[i].TypeID < c.types[j].TypeID })
	for i, tt := range c.types {
		c.index[tt.TypeID] = i
	}
	return c, nil
}

// Types returns all task types ordered by id, each with its ordered statuses.
func (c *Catalog) Types() []TaskType {
	out := make([]TaskType, len(c.types))
	for i, tt := range c.types {
		out[i] = TaskType{TypeID: tt.TypeID, Name: tt.Name, Statuses: c.StatusesFor(tt.TypeID)}
	}
	return out
}

// Type looks up a task type by id.
func (c *Catalog) Type(typeID int) (TaskType, bool) {
	i, ok := c.index[typeID]
	if !ok {
		return TaskType{}, false
	}
	tt := c.types[i]
	return TaskType{TypeID: tt.TypeID, Name: tt.Name, Statuses: c.StatusesFor(typeID)}, true
}

// StatusesFor returns the ordered status sequence of a type, or nil if the type is unknown.
func (c *Catalog) StatusesFor(typeID int) []StatusDefinition {
	i, ok := c.index[typeID]
	if !ok {
		return nil
	}
	src := c.types[i].Statuses
	out := make([]StatusDefinition, len(src))
	copy(out, src)
	return out
}

// Status looks up one status definition.
func (c *Catalog) Status(typeID, statusID int) (StatusDefinition, bool) {
	i, ok := c.index[typeID]
	if !ok || statusID < 1 {
		return StatusDefinition{}, false
	}
	statuses := c.types[i].Statuses
	if statusID > len(statuses) {
		return StatusDefinition{}, false
	}
	return statuses[statusID-1], true
}

// MinStatus returns the initial status of a type, or 0 if the type is unknown.
func (c *Catalog) MinStatus(typeID int) int {
	i, ok := c.index[typeID]
	if !ok {
		return 0
	}
	return c.types[i].Statuses[0].StatusID
}

// StatusName returns a display name for a task's status, including the closed sentinel.
func (c *Catalog) StatusName(typeID, statusID int) string {
	if statusID == StatusClosed {
		return "Closed"
	}
	if s, ok := c.Status(typeID, statusID); ok {
		return s.Name
	}
	return fmt.Sprintf("Unknown (%d)", statusID)
}
