package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strata-db/strata/internal/domain/entities"
)

func TestBuildRegistryFromYAML(t *testing.T) {
	data := []byte(`
entities:
  - name: author
    fields:
      - {name: name, type: string, max_length: 100, required: true}
  - name: book
    ordering: [-title]
    fields:
      - {name: title, type: string, required: true}
      - {name: author, type: string, ref: author, required: true}
relationships:
  - {name: author, kind: many_to_one, source: book, target: author,
     field: author, on_delete: cascade}
`)

	registry, err := BuildRegistryFromYAML(data)
	require.NoError(t, err)
	assert.True(t, registry.Frozen())

	def, err := registry.Get("book")
	require.NoError(t, err)
	assert.Equal(t, []entities.OrderKey{{Field: "title", Desc: true}}, def.Ordering)

	rel, err := registry.Relationship("book", "author")
	require.NoError(t, err)
	assert.Equal(t, entities.DeleteCascade, rel.OnDelete)
}

func TestBuildRegistryFromYAML_Invalid(t *testing.T) {
	_, err := BuildRegistryFromYAML([]byte("entities: {not: a list}"))
	require.Error(t, err)

	// Relationship against a missing entity fails registry validation.
	_, err = BuildRegistryFromYAML([]byte(`
entities:
  - name: book
    fields:
      - {name: title, type: string}
relationships:
  - {name: author, kind: many_to_one, source: book, target: author, field: title}
`))
	require.Error(t, err)
}

func TestLoadSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
entities:
  - name: topping
    fields:
      - {name: name, type: string, required: true}
`), 0644))

	registry, err := LoadSchema(path)
	require.NoError(t, err)
	_, err = registry.Get("topping")
	require.NoError(t, err)

	_, err = LoadSchema(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

// The shipped demo schema and the programmatic default registry must
// describe the same catalogue.
func TestDemoSchemaYAML_MatchesDefaultRegistry(t *testing.T) {
	fromYAML, err := BuildRegistryFromYAML([]byte(DemoSchemaYAML))
	require.NoError(t, err)

	programmatic, err := entities.DefaultRegistry()
	require.NoError(t, err)

	yamlDefs := fromYAML.Entities()
	goDefs := programmatic.Entities()
	require.Len(t, yamlDefs, len(goDefs))

	for i, def := range goDefs {
		assert.Equal(t, def.Name, yamlDefs[i].Name)
		assert.Equal(t, def.FieldNames(), yamlDefs[i].FieldNames(), "fields of %s", def.Name)
		assert.Equal(t, def.Timestamps, yamlDefs[i].Timestamps, "timestamps of %s", def.Name)
		assert.Equal(t, def.Ordering, yamlDefs[i].Ordering, "ordering of %s", def.Name)

		for _, rel := range programmatic.Relationships(def.Name) {
			got, err := fromYAML.Relationship(def.Name, rel.Name)
			require.NoError(t, err, "relationship %s", rel.Qualified())
			assert.Equal(t, rel.Kind, got.Kind)
			assert.Equal(t, rel.OnDelete, got.OnDelete)
			assert.Equal(t, rel.Through, got.Through)
			assert.Equal(t, rel.UniquePairs, got.UniquePairs)
		}
	}
}
