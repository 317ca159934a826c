package classifier

import (
	"fmt"
	"strings"
)

// Source names an artifact to load into a catalog.
type Source struct {
	Name  string
	Title string
	Path  string
}

// Catalog groups the loaded trees by classifier name.
type Catalog struct {
	trees  map[string]*Tree
	titles map[string]string
	order  []string
	def    string
}

// NewCatalog assembles a catalog from already loaded trees. The first tree is
// the default unless def names another one.
func NewCatalog(def string, trees ...*Tree) (*Catalog, error) {
	c := &Catalog{
		trees:  make(map[string]*Tree, len(trees)),
		titles: make(map[string]string, len(trees)),
	}
	for _, t := range trees {
		if t == nil {
			continue
		}
		if _, dup := c.trees[t.name]; dup {
			return nil, fmt.Errorf("classifier: duplicate classifier %q", t.name)
		}
		c.trees[t.name] = t
		c.order = append(c.order, t.name)
	}
	if len(c.order) == 0 {
		return nil, fmt.Errorf("classifier: empty catalog")
	}
	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" {
		def = c.order[0]
	}
	if _, ok := c.trees[def]; !ok {
		return nil, fmt.Errorf("classifier: default classifier %q is not loaded", def)
	}
	c.def = def
	return c, nil
}

// LoadCatalog loads every source. Any missing artifact aborts loading.
func LoadCatalog(def string, sources []Source) (*Catalog, error) {
	trees := make([]*Tree, 0, len(sources))
	titles := make(map[string]string, len(sources))
	for _, src := range sources {
		name := strings.ToLower(strings.TrimSpace(src.Name))
		t, err := Load(name, src.Path)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
		titles[name] = src.Title
	}
	c, err := NewCatalog(def, trees...)
	if err != nil {
		return nil, err
	}
	for name, title := range titles {
		c.titles[name] = title
	}
	return c, nil
}

// Get returns the tree registered under name.
func (c *Catalog) Get(name string) (*Tree, bool) {
	t, ok := c.trees[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// Default returns the default tree.
func (c *Catalog) Default() *Tree { return c.trees[c.def] }

// Names lists classifier names in load order.
func (c *Catalog) Names() []string { return append([]string(nil), c.order...) }

// Title returns the display title of a classifier, falling back to its
// upper-cased name.
func (c *Catalog) Title(name string) string {
	if t := c.titles[name]; t != "" {
		return t
	}
	return strings.ToUpper(name)
}

// FindCode searches the default tree first, then the rest in load order.
func (c *Catalog) FindCode(code string) (string, Hit, bool) {
	if hit, ok := c.Default().FindCode(code); ok {
		return c.def, hit, true
	}
	for _, name := range c.order {
		if name == c.def {
			continue
		}
		if hit, ok := c.trees[name].FindCode(code); ok {
			return name, hit, true
		}
	}
	return "", Hit{}, false
}
