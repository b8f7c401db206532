package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strata-db/strata/internal/domain/entities"
)

// SchemaFile is the YAML declaration of a project's entity definitions,
// abstract bases and relationships.
type SchemaFile struct {
	Bases         []BaseSpec         `yaml:"bases,omitempty"`
	Entities      []EntitySpec       `yaml:"entities"`
	Relationships []RelationshipSpec `yaml:"relationships,omitempty"`
}

// BaseSpec declares one abstract base.
type BaseSpec struct {
	Name     string           `yaml:"name"`
	Fields   []entities.Field `yaml:"fields"`
	Ordering []string         `yaml:"ordering,omitempty"`
}

// EntitySpec declares one entity.
type EntitySpec struct {
	Name       string           `yaml:"name"`
	Base       string           `yaml:"base,omitempty"`
	Extends    string           `yaml:"extends,omitempty"`
	Timestamps bool             `yaml:"timestamps,omitempty"`
	Ordering   []string         `yaml:"ordering,omitempty"`
	Fields     []entities.Field `yaml:"fields"`
}

// RelationshipSpec declares one relationship edge.
type RelationshipSpec struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Source     string `yaml:"source"`
	Target     string `yaml:"target"`
	Field      string `yaml:"field,omitempty"`
	OnDelete   string `yaml:"on_delete,omitempty"`
	Through    string `yaml:"through,omitempty"`
	LeftField  string `yaml:"left_field,omitempty"`
	RightField string `yaml:"right_field,omitempty"`
	Unique     bool   `yaml:"unique,omitempty"`
}

// LoadSchema reads a schema file and builds a frozen registry from it.
func LoadSchema(path string) (*entities.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}

	var sf SchemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing schema file: %w", err)
	}

	return BuildRegistry(&sf)
}

// BuildRegistryFromYAML parses schema YAML and builds a frozen registry.
func BuildRegistryFromYAML(data []byte) (*entities.Registry, error) {
	var sf SchemaFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return BuildRegistry(&sf)
}

// BuildRegistry materializes a schema declaration into a frozen registry.
func BuildRegistry(sf *SchemaFile) (*entities.Registry, error) {
	r := entities.NewRegistry()

	for _, spec := range sf.Bases {
		base := entities.AbstractBase{
			Name:     spec.Name,
			Fields:   spec.Fields,
			Ordering: entities.ParseOrderKeys(spec.Ordering),
		}
		if err := r.DefineBase(base); err != nil {
			return nil, err
		}
	}

	for _, spec := range sf.Entities {
		def := &entities.EntityDef{
			Name:       spec.Name,
			Base:       spec.Base,
			Extends:    spec.Extends,
			Timestamps: spec.Timestamps,
			Ordering:   entities.ParseOrderKeys(spec.Ordering),
			Fields:     spec.Fields,
		}
		if err := r.Define(def); err != nil {
			return nil, err
		}
	}

	for _, spec := range sf.Relationships {
		rel := &entities.RelationshipDef{
			Name:        spec.Name,
			Kind:        entities.RelationKind(spec.Kind),
			Source:      spec.Source,
			Target:      spec.Target,
			Field:       spec.Field,
			OnDelete:    entities.DeletePolicy(spec.OnDelete),
			Through:     spec.Through,
			LeftField:   spec.LeftField,
			RightField:  spec.RightField,
			UniquePairs: spec.Unique,
		}
		if err := r.DefineRelationship(rel); err != nil {
			return nil, err
		}
	}

	r.Freeze()
	return r, nil
}
