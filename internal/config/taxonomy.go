package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Taxonomy is the externally supplied product grouping: which repos form
// which product. It replaces the product groups of the product document when
// configured.
type Taxonomy struct {
	Products []TaxonomyProduct `yaml:"products" toml:"products" validate:"dive"`
}

type TaxonomyProduct struct {
	Name        string   `yaml:"name" toml:"name" validate:"required"`
	Description string   `yaml:"description" toml:"description"`
	Repos       []string `yaml:"repos" toml:"repos" validate:"dive,required"`
}

// LoadTaxonomy reads a taxonomy file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as TOML.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	var tax *Taxonomy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		tax, err = ParseTaxonomyYAML(data)
	default:
		tax, err = ParseTaxonomyTOML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return tax, nil
}

func ParseTaxonomyYAML(data []byte) (*Taxonomy, error) {
	var tax Taxonomy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&tax); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := tax.validate(); err != nil {
		return nil, err
	}
	return &tax, nil
}

func ParseTaxonomyTOML(data []byte) (*Taxonomy, error) {
	var tax Taxonomy
	if _, err := toml.Decode(string(data), &tax); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	if err := tax.validate(); err != nil {
		return nil, err
	}
	return &tax, nil
}

func (t *Taxonomy) validate() error {
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid taxonomy: %w", err)
	}
	seen := make(map[string]bool, len(t.Products))
	for _, p := range t.Products {
		key := strings.ToLower(p.Name)
		if seen[key] {
			return fmt.Errorf("invalid taxonomy: duplicate product %q", p.Name)
		}
		seen[key] = true
	}
	return nil
}
