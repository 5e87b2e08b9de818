package api

import "sort"

// Script is one entry in the gated catalog. The body is delivered verbatim to
// entitled callers.
type Script struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Body        string `json:"body"`
}

// Catalog is an in-memory, read-only script catalog built once at startup.
type Catalog struct {
	byName map[string]Script
	names  []string
}

// NewCatalog builds a catalog. Later duplicates of a name win.
func NewCatalog(scripts ...Script) *Catalog {
	c := &Catalog{byName: make(map[string]Script, len(scripts))}
	for _, s := range scripts {
		if s.Name == "" {
			continue
		}
		if _, exists := c.byName[s.Name]; !exists {
			c.names = append(c.names, s.Name)
		}
		c.byName[s.Name] = s
	}
	sort.Strings(c.names)
	return c
}

// List returns name/description summaries in name order.
func (c *Catalog) List() []scriptSummary {
	out := make([]scriptSummary, 0, len(c.names))
	for _, name := range c.names {
		s := c.byName[name]
		out = append(out, scriptSummary{Name: s.Name, Description: s.Description})
	}
	return out
}

// Get returns a script by name.
func (c *Catalog) Get(name string) (Script, bool) {
	s, ok := c.byName[name]
	return s, ok
}
