// Package offset_file loads named offsets from a YAML document:
//
//	offsets:
//	  health: "0x10, 0x8"
//	  position: { offset: "0x50, 0x20", type: vector3, base: player }
//	bases:
//	  player: "0x1D2C3E0"
//	tables:
//	  actors: { offset: "0x1D2C3E0", count_width: 1 }
//	flags:
//	  freeze_physics: ["0x140A1B2", "0x90, 0x90", "0x0F, 0x29"]
package offset_file

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"livemem/offset"
)

// ErrUnknownName is returned by lookups for names the catalog lacks.
var ErrUnknownName = errors.New("unknown offset name")

// Entry is a named value offset with optional type and base hints.
type Entry struct {
	Offset offset.Offset
	Type   string
	Base   string
}

type entryDoc struct {
	Offset string `yaml:"offset"`
	Type   string `yaml:"type"`
	Base   string `yaml:"base"`
}

// UnmarshalYAML accepts either a bare hex list or a mapping.
func (e *entryDoc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		e.Offset = node.Value
		return nil
	}
	type plain entryDoc
	return node.Decode((*plain)(e))
}

type tableDoc struct {
	Offset     string `yaml:"offset"`
	CountWidth int    `yaml:"count_width"`
}

type document struct {
	Offsets map[string]entryDoc `yaml:"offsets"`
	Bases   map[string]string   `yaml:"bases"`
	Tables  map[string]tableDoc `yaml:"tables"`
	Flags   map[string][]string `yaml:"flags"`
}

// Catalog holds parsed offsets by name.
type Catalog struct {
	Entries map[string]Entry
	Bases   map[string]offset.BaseOffset
	Tables  map[string]offset.ActorTableOffset
	Flags   map[string]offset.FlagOffset
}

// Load reads and parses path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse parses a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		Entries: make(map[string]Entry, len(doc.Offsets)),
		Bases:   make(map[string]offset.BaseOffset, len(doc.Bases)),
		Tables:  make(map[string]offset.ActorTableOffset, len(doc.Tables)),
		Flags:   make(map[string]offset.FlagOffset, len(doc.Flags)),
	}

	for name, s := range doc.Bases {
		steps, err := ParseHexList(s)
		if err != nil {
			return nil, fmt.Errorf("base %s: %w", name, err)
		}
		c.Bases[name] = offset.NewBase(steps...)
	}

	for name, e := range doc.Offsets {
		steps, err := ParseHexList(e.Offset)
		if err != nil {
			return nil, fmt.Errorf("offset %s: %w", name, err)
		}
		if len(steps) == 0 {
			return nil, fmt.Errorf("offset %s: no steps", name)
		}
		if e.Base != "" {
			if _, ok := c.Bases[e.Base]; !ok {
				return nil, fmt.Errorf("offset %s: %w: base %s", name, ErrUnknownName, e.Base)
			}
		}
		c.Entries[name] = Entry{Offset: offset.New(steps...), Type: e.Type, Base: e.Base}
	}

	for name, t := range doc.Tables {
		steps, err := ParseHexList(t.Offset)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		table, err := offset.NewActorTable(offset.NewBase(steps...), t.CountWidth)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", name, err)
		}
		c.Tables[name] = table
	}

	for name, triple := range doc.Flags {
		if len(triple) != 3 {
			return nil, fmt.Errorf("flag %s: want [offset, on, off], got %d items", name, len(triple))
		}
		steps, err := ParseHexList(triple[0])
		if err != nil {
			return nil, fmt.Errorf("flag %s offset: %w", name, err)
		}
		on, err := ParseHexBytes(triple[1])
		if err != nil {
			return nil, fmt.Errorf("flag %s on: %w", name, err)
		}
		off, err := ParseHexBytes(triple[2])
		if err != nil {
			return nil, fmt.Errorf("flag %s off: %w", name, err)
		}
		flag, err := offset.NewFlag(offset.New(steps...), on, off)
		if err != nil {
			return nil, fmt.Errorf("flag %s: %w", name, err)
		}
		c.Flags[name] = flag
	}

	return c, nil
}

// Entry looks up a value offset.
func (c *Catalog) Entry(name string) (Entry, error) {
	e, ok := c.Entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: offset %s", ErrUnknownName, name)
	}
	return e, nil
}

// BaseOf returns the base an entry is rooted at, nil for module-relative
// entries.
func (c *Catalog) BaseOf(e Entry) *offset.BaseOffset {
	if e.Base == "" {
		return nil
	}
	b := c.Bases[e.Base]
	return &b
}

func (c *Catalog) Base(name string) (offset.BaseOffset, error) {
	b, ok := c.Bases[name]
	if !ok {
		return offset.BaseOffset{}, fmt.Errorf("%w: base %s", ErrUnknownName, name)
	}
	return b, nil
}

func (c *Catalog) Table(name string) (offset.ActorTableOffset, error) {
	t, ok := c.Tables[name]
	if !ok {
		return offset.ActorTableOffset{}, fmt.Errorf("%w: table %s", ErrUnknownName, name)
	}
	return t, nil
}

func (c *Catalog) Flag(name string) (offset.FlagOffset, error) {
	f, ok := c.Flags[name]
	if !ok {
		return offset.FlagOffset{}, fmt.Errorf("%w: flag %s", ErrUnknownName, name)
	}
	return f, nil
}

// Names returns the sorted names of every entry of every kind.
func (c *Catalog) Names() []string {
	var names []string
	for name := range c.Entries {
		names = append(names, name)
	}
	for name := range c.Bases {
		names = append(names, name)
	}
	for name := range c.Tables {
		names = append(names, name)
	}
	for name := range c.Flags {
		names = append(names, name)
	}
	slices.Sort(names)
	return slices.Compact(names)
}
