package entities

import "fmt"

// Registry holds the set of entity definitions, abstract bases and
// relationship edges. It is populated once at bootstrap, frozen, and
// read-only afterward, so lookups need no locking.
type Registry struct {
	entities map[string]*EntityDef
	order    []string
	bases    map[string]AbstractBase
	rels     map[string]map[string]*RelationshipDef // source -> name -> def
	relList  []*RelationshipDef                     // declaration order
	frozen   bool
}

// NewRegistry returns an empty schema registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*EntityDef),
		bases:    make(map[string]AbstractBase),
		rels:     make(map[string]map[string]*RelationshipDef),
	}
}

// DefineBase registers a reusable abstract field-set. Bases are never
// storable; they only contribute fields and ordering to entities.
func (r *Registry) DefineBase(base AbstractBase) error {
	if r.frozen {
		return ErrFrozen
	}
	if base.Name == "" {
		return fmt.Errorf("abstract base needs a name")
	}
	if _, ok := r.bases[base.Name]; ok {
		return fmt.Errorf("abstract base %q is already defined", base.Name)
	}
	for _, f := range base.Fields {
		if !IsValidType(f.Type) {
			return fmt.Errorf("base %s: field %s has unknown type %q", base.Name, f.Name, f.Type)
		}
	}
	r.bases[base.Name] = base
	return nil
}

// Define registers an entity definition. The definition's base (if any) is
// resolved immediately; defaults are normalized against their field type.
func (r *Registry) Define(def *EntityDef) error {
	if r.frozen {
		return ErrFrozen
	}
	if def.Name == "" {
		return fmt.Errorf("entity needs a name")
	}
	if _, ok := r.entities[def.Name]; ok {
		return &DuplicateEntityError{Entity: def.Name}
	}

	if def.Base != "" {
		base, ok := r.bases[def.Base]
		if !ok {
			return fmt.Errorf("entity %s: unknown abstract base %q", def.Name, def.Base)
		}
		def.applyBase(base)
	}

	seen := make(map[string]bool, len(def.Fields))
	for i := range def.Fields {
		f := &def.Fields[i]
		if f.Name == "" {
			return fmt.Errorf("entity %s: field without a name", def.Name)
		}
		if seen[f.Name] {
			return fmt.Errorf("entity %s: duplicate field %q", def.Name, f.Name)
		}
		seen[f.Name] = true
		if !IsValidType(f.Type) {
			return fmt.Errorf("entity %s: field %s has unknown type %q", def.Name, f.Name, f.Type)
		}
		if f.Default != nil {
			normalized, err := f.Normalize(f.Default)
			if err != nil {
				return fmt.Errorf("entity %s: field %s default: %v", def.Name, f.Name, err)
			}
			f.Default = normalized
		}
	}

	if def.Extends != "" {
		parent, ok := r.entities[def.Extends]
		if !ok {
			return fmt.Errorf("entity %s: extends unknown entity %q", def.Name, def.Extends)
		}
		// An extension shares identity with its parent; register the
		// implicit one-to-one edge so cascade traversal sees it.
		rel := &RelationshipDef{
			Name:     def.Extends,
			Kind:     OneToOne,
			Source:   def.Name,
			Target:   parent.Name,
			OnDelete: DeleteCascade,
		}
		if err := r.addRelationship(rel); err != nil {
			return err
		}
	}

	def.reindex()
	r.entities[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// DefineRelationship registers a relationship edge. Both endpoints, the
// holding field (many-to-one) and the through entity (many-to-many) must
// already be defined.
func (r *Registry) DefineRelationship(rel *RelationshipDef) error {
	if r.frozen {
		return ErrFrozen
	}
	src, ok := r.entities[rel.Source]
	if !ok {
		return &UnknownEntityError{Entity: rel.Source}
	}
	if _, ok := r.entities[rel.Target]; !ok {
		return &UnknownEntityError{Entity: rel.Target}
	}

	switch rel.Kind {
	case ManyToOne:
		if rel.Field == "" {
			return fmt.Errorf("relationship %s: many-to-one needs a holding field", rel.Qualified())
		}
		f, ok := src.Field(rel.Field)
		if !ok {
			return fmt.Errorf("relationship %s: source has no field %q", rel.Qualified(), rel.Field)
		}
		if f.Ref != "" && f.Ref != rel.Target {
			return fmt.Errorf("relationship %s: field %s references %q, not %q", rel.Qualified(), rel.Field, f.Ref, rel.Target)
		}
		switch rel.OnDelete {
		case "":
			rel.OnDelete = DeleteCascade
		case DeleteCascade, DeleteSetNull, DeleteRestrict:
		default:
			return fmt.Errorf("relationship %s: unknown delete policy %q", rel.Qualified(), rel.OnDelete)
		}
		if rel.OnDelete == DeleteSetNull && f.Required {
			return fmt.Errorf("relationship %s: set_null needs an optional field", rel.Qualified())
		}
	case ManyToMany:
		if rel.Through != "" {
			through, ok := r.entities[rel.Through]
			if !ok {
				return fmt.Errorf("relationship %s: unknown through entity %q", rel.Qualified(), rel.Through)
			}
			if _, ok := through.Field(rel.LeftField); !ok {
				return fmt.Errorf("relationship %s: through entity has no field %q", rel.Qualified(), rel.LeftField)
			}
			if _, ok := through.Field(rel.RightField); !ok {
				return fmt.Errorf("relationship %s: through entity has no field %q", rel.Qualified(), rel.RightField)
			}
		}
	case OneToOne:
		// Registered implicitly by Define via Extends.
	default:
		return fmt.Errorf("relationship %s: unknown kind %q", rel.Qualified(), rel.Kind)
	}

	return r.addRelationship(rel)
}

func (r *Registry) addRelationship(rel *RelationshipDef) error {
	byName := r.rels[rel.Source]
	if byName == nil {
		byName = make(map[string]*RelationshipDef)
		r.rels[rel.Source] = byName
	}
	if _, ok := byName[rel.Name]; ok {
		return fmt.Errorf("relationship %s is already defined", rel.Qualified())
	}
	byName[rel.Name] = rel
	r.relList = append(r.relList, rel)
	return nil
}

// Freeze marks the schema bootstrap complete. Definitions added afterward
// fail with ErrFrozen.
func (r *Registry) Freeze() { r.frozen = true }

// Frozen reports whether the registry has been frozen.
func (r *Registry) Frozen() bool { return r.frozen }

// Get returns the entity definition for name.
func (r *Registry) Get(name string) (*EntityDef, error) {
	def, ok := r.entities[name]
	if !ok {
		return nil, &UnknownEntityError{Entity: name}
	}
	return def, nil
}

// Entities returns all definitions in declaration order.
func (r *Registry) Entities() []*EntityDef {
	defs := make([]*EntityDef, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.entities[name])
	}
	return defs
}

// Relationship returns the named relationship declared on source.
func (r *Registry) Relationship(source, name string) (*RelationshipDef, error) {
	if _, ok := r.entities[source]; !ok {
		return nil, &UnknownEntityError{Entity: source}
	}
	rel, ok := r.rels[source][name]
	if !ok {
		return nil, fmt.Errorf("entity %s has no relationship %q", source, name)
	}
	return rel, nil
}

// Relationships returns all relationships declared on source, in
// declaration order.
func (r *Registry) Relationships(source string) []*RelationshipDef {
	var rels []*RelationshipDef
	for _, rel := range r.allRelationships() {
		if rel.Source == source {
			rels = append(rels, rel)
		}
	}
	return rels
}

// RelationshipsInto returns every relationship whose target is the given
// entity, in declaration order. Cascade traversal walks these edges.
func (r *Registry) RelationshipsInto(target string) []*RelationshipDef {
	var rels []*RelationshipDef
	for _, rel := range r.allRelationships() {
		if rel.Target == target {
			rels = append(rels, rel)
		}
	}
	return rels
}

// allRelationships returns every registered edge in declaration order.
func (r *Registry) allRelationships() []*RelationshipDef {
	return r.relList
}

// RelationshipByQualified resolves a store-wide link-set key such as
// "pizza.toppings".
func (r *Registry) RelationshipByQualified(qualified string) (*RelationshipDef, bool) {
	for _, rel := range r.relList {
		if rel.Qualified() == qualified {
			return rel, true
		}
	}
	return nil, false
}

// ValidateValue normalizes and checks a single field value.
func (r *Registry) ValidateValue(entity, field string, value any) (any, error) {
	def, err := r.Get(entity)
	if err != nil {
		return nil, err
	}
	f, ok := def.Field(field)
	if !ok {
		return nil, &ValidationError{Entity: entity, Field: field, Reason: "no such field"}
	}
	normalized, err := f.Normalize(value)
	if err != nil {
		return nil, &ValidationError{Entity: entity, Field: field, Reason: err.Error()}
	}
	if err := f.Check(normalized); err != nil {
		return nil, &ValidationError{Entity: entity, Field: field, Reason: err.Error()}
	}
	return normalized, nil
}

// ValidateRecord normalizes a full value map: unknown fields are rejected,
// absent optional fields receive their declared default, and every value is
// checked against its field's constraints. The input map is not modified.
func (r *Registry) ValidateRecord(entity string, values map[string]any) (map[string]any, error) {
	def, err := r.Get(entity)
	if err != nil {
		return nil, err
	}

	for name := range values {
		if _, ok := def.Field(name); !ok {
			return nil, &ValidationError{Entity: entity, Field: name, Reason: "no such field"}
		}
	}

	out := make(map[string]any, len(def.Fields))
	for _, f := range def.Fields {
		value, present := values[f.Name]
		if !present {
			if f.Default != nil {
				out[f.Name] = f.Default
				continue
			}
			if f.Required {
				return nil, &ValidationError{Entity: entity, Field: f.Name, Reason: "value is required"}
			}
			out[f.Name] = nil
			continue
		}
		normalized, err := f.Normalize(value)
		if err != nil {
			return nil, &ValidationError{Entity: entity, Field: f.Name, Reason: err.Error()}
		}
		if err := f.Check(normalized); err != nil {
			return nil, &ValidationError{Entity: entity, Field: f.Name, Reason: err.Error()}
		}
		out[f.Name] = normalized
	}
	return out, nil
}
