package menu

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is the root of a menu definition file.
type Document struct {
	// Title is the document title
	Title string `json:"title" yaml:"title"`

	// Description of the document
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version of the document
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Menus are the tagged item sets defined by the document
	Menus []Set `json:"menus,omitempty" yaml:"menus,omitempty"`
}

// Set is an item set published under a tag.
type Set struct {
	Tag   string `json:"tag" yaml:"tag"`
	Items []Item `json:"items,omitempty" yaml:"items,omitempty"`
}

// ErrDuplicateTag is returned when a document defines the same tag twice.
var ErrDuplicateTag = errors.New("duplicate menu tag")

// Load reads a menu document from a YAML (or JSON) file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading menu document: %w", err)
	}

	return Parse(data)
}

// Parse decodes a menu document. JSON input is accepted as it is valid YAML.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing menu document: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid menu document: %w", err)
	}

	return &doc, nil
}

// Validate checks that tags are unique. More than one home item in a set is
// allowed but logged, since navigate-home assumes a single one.
func (d *Document) Validate() error {
	seen := make(map[string]bool, len(d.Menus))
	for _, s := range d.Menus {
		if seen[s.Tag] {
			return fmt.Errorf("%w: %q", ErrDuplicateTag, s.Tag)
		}
		seen[s.Tag] = true

		if homes := countHomes(s.Items); homes > 1 {
			slog.Warn("menu set has more than one home item",
				"tag", s.Tag,
				"count", homes,
			)
		}
	}

	return nil
}

func countHomes(items []Item) int {
	var n int
	for _, it := range items {
		if it.Home {
			n++
		}
		n += countHomes(it.Children)
	}
	return n
}
