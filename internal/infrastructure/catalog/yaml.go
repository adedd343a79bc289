// Package catalog loads badge catalogs from YAML.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gd-practice/gd-coach/internal/domain/gamification"
	"github.com/gd-practice/gd-coach/internal/domain/shared"
)

type document struct {
	Badges []gamification.BadgeDefinition `yaml:"badges"`
}

// Parse reads a catalog document of the form
//
//	badges:
//	  - id: first_practice
//	    title: First Steps
//	    requirement: {type: first_practice, count: 1}
//
// Unknown fields are rejected. Order in the file is catalog order.
func Parse(data []byte) (*gamification.Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, shared.WrapError("catalog", "Parse", shared.ErrInvalidCatalog, "catalog file is empty", err)
		}
		return nil, shared.WrapError("catalog", "Parse", shared.ErrInvalidCatalog, "unmarshal badge catalog", err)
	}
	return gamification.NewCatalog(doc.Badges)
}

// Load reads path. An empty path returns the built-in catalog.
func Load(path string) (*gamification.Catalog, error) {
	if path == "" {
		return gamification.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read badge catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("badge catalog %s: %w", path, err)
	}
	return c, nil
}

// Render writes c as a catalog document, for editing a copy of the
// defaults.
func Render(c *gamification.Catalog) ([]byte, error) {
	raw, err := yaml.Marshal(document{Badges: c.All()})
	if err != nil {
		return nil, fmt.Errorf("marshal badge catalog: %w", err)
	}
	return raw, nil
}
