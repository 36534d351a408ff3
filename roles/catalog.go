package roles

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultTable []byte

// Catalog maps backend role IDs to role names
type Catalog struct {
	byID map[int]Role

	// OnUnmapped is called for every role ID the table does not know. The ID is still dropped.
	OnUnmapped func(id int)
}

type catalogFile struct {
	Roles []Role `yaml:"roles"`
}

// DefaultCatalog returns the embedded role table
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultTable)
	if err != nil {
		panic("embedded role table is invalid: " + err.Error())
	}
	return c
}

// LoadCatalog reads a YAML role table from disk. An empty path yields the default table.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("[roles LoadCatalog] read %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML role table
func ParseCatalog(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("[roles ParseCatalog] decode: %w", err)
	}
	return NewCatalog(f.Roles...)
}

// NewCatalog builds a catalog, rejecting non-positive or duplicate IDs and unknown names
func NewCatalog(table ...Role) (*Catalog, error) {
	byID := make(map[int]Role, len(table))
	for _, r := range table {
		if r.ID <= 0 {
			return nil, fmt.Errorf("[roles NewCatalog] role %q: id must be positive", r.Name)
		}
		name, ok := ParseName(string(r.Name))
		if !ok {
			return nil, fmt.Errorf("[roles NewCatalog] role id %d: unknown name %q", r.ID, r.Name)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("[roles NewCatalog] duplicate role id %d", r.ID)
		}
		r.Name = name
		byID[r.ID] = r
	}
	return &Catalog{byID: byID}, nil
}

// Lookup returns the role registered for id
func (c *Catalog) Lookup(id int) (Role, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Roles lists the table ordered by ID
func (c *Catalog) Roles() []Role {
	out := make([]Role, 0, len(c.byID))
	for _, r := range c.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// MapRolesToNames resolves backend role references. Unknown IDs are omitted, never substituted.
func (c *Catalog) MapRolesToNames(refs []Ref) []Name {
	names := make([]Name, 0, len(refs))
	for _, ref := range refs {
		r, ok := c.byID[ref.ID]
		if !ok {
			if c.OnUnmapped != nil {
				c.OnUnmapped(ref.ID)
			}
			continue
		}
		names = append(names, r.Name)
	}
	return names
}
