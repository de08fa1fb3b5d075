// Package formats loads the declarative statement layout definitions used to
// recognise which bank and product a document belongs to.
package formats

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is used for bank and product type when a definition omits them.
const Unknown = "UNKNOWN"

//go:embed definitions/*.yml
var builtin embed.FS

// Definition describes how to recognise one statement layout from sampled text.
type Definition struct {
	ID                 string   `yaml:"id" json:"id"`
	Bank               string   `yaml:"bank" json:"bank"`
	ProductType        string   `yaml:"product_type" json:"productType"`
	TextShouldContain  []string `yaml:"text_should_contain" json:"textShouldContain"`
	TextMustContainAny []string `yaml:"text_must_contain_any" json:"textMustContainAny"`
	RegexShouldMatch   []string `yaml:"regex_should_match" json:"regexShouldMatch"`

	// patterns holds RegexShouldMatch compiled in multiline mode. Entries
	// that failed to compile are nil.
	patterns []*regexp.Regexp
}

// Patterns returns the compiled RegexShouldMatch entries. A nil element marks
// a pattern that did not compile.
func (d Definition) Patterns() []*regexp.Regexp {
	return d.patterns
}

// Catalog is an immutable, ordered set of definitions.
type Catalog struct {
	defs []Definition
	byID map[string]int
}

// New builds a catalog from defs, preserving their order. Regex hints are
// compiled once here; an invalid pattern is logged and never matches.
// Duplicate or empty ids are rejected.
func New(defs []Definition) (*Catalog, error) {
	c := &Catalog{
		defs: make([]Definition, 0, len(defs)),
		byID: make(map[string]int, len(defs)),
	}
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("format definition without id")
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate format id %q", d.ID)
		}
		d.TextShouldContain = append([]string(nil), d.TextShouldContain...)
		d.TextMustContainAny = append([]string(nil), d.TextMustContainAny...)
		d.RegexShouldMatch = append([]string(nil), d.RegexShouldMatch...)
		d.patterns = compilePatterns(d.ID, d.RegexShouldMatch)

		c.byID[d.ID] = len(c.defs)
		c.defs = append(c.defs, d)
	}
	return c, nil
}

func compilePatterns(id string, raw []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(raw))
	for i, rx := range raw {
		re, err := regexp.Compile("(?m)" + rx)
		if err != nil {
			slog.Warn("ignoring invalid format pattern", "format_id", id, "pattern", rx, "error", err)
			continue
		}
		out[i] = re
	}
	return out
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return LoadFS(builtin, "definitions")
}

// Load reads every *.yml / *.yaml file in dir.
func Load(dir string) (*Catalog, error) {
	return LoadFS(os.DirFS(dir), ".")
}

// LoadFS reads every *.yml / *.yaml file in dir of fsys, in sorted file name
// order. That order is the catalog order and therefore decides detection
// ties. A file that cannot be parsed aborts the load.
func LoadFS(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading format definitions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(path.Ext(e.Name()))
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	defs := make([]Definition, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		d, err := parseDefinition(name, data)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return New(defs)
}

func parseDefinition(name string, data []byte) (Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Definition{}, fmt.Errorf("parsing %s: %w", name, err)
	}
	if d.ID == "" {
		d.ID = strings.TrimSuffix(name, path.Ext(name))
	}
	if d.Bank == "" {
		d.Bank = Unknown
	}
	if d.ProductType == "" {
		d.ProductType = Unknown
	}
	return d, nil
}

// All returns the definitions in catalog order.
func (c *Catalog) All() []Definition {
	if c == nil {
		return nil
	}
	return append([]Definition(nil), c.defs...)
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (Definition, bool) {
	if c == nil {
		return Definition{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Definition{}, false
	}
	return c.defs[i], true
}

// Len returns the number of definitions.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.defs)
}
