package entities

// RelationKind identifies the shape of a relationship edge.
type RelationKind string

const (
	// ManyToOne: each source record references at most one target record
	// through a declared field on the source entity.
	ManyToOne RelationKind = "many_to_one"
	// ManyToMany: a symmetric set relation, optionally mediated by an
	// explicit through-entity carrying per-pair attributes.
	ManyToMany RelationKind = "many_to_many"
	// OneToOne: table extension; source records share identity with a
	// parent record of the target entity.
	OneToOne RelationKind = "one_to_one"
)

// DeletePolicy controls what happens to dependents when the referenced
// record is deleted.
type DeletePolicy string

const (
	DeleteCascade  DeletePolicy = "cascade"
	DeleteSetNull  DeletePolicy = "set_null"
	DeleteRestrict DeletePolicy = "restrict"
)

// RelationshipDef is a directed edge between two entity definitions.
type RelationshipDef struct {
	// Name is the accessor name on the source entity ("artist", "toppings").
	Name   string
	Kind   RelationKind
	Source string
	Target string
	// Field is the source field holding the target ID (many-to-one only).
	Field    string
	OnDelete DeletePolicy
	// Through names an explicit join entity for many-to-many. Empty means a
	// plain join with no attributes, which is always unique per pair.
	Through string
	// LeftField/RightField are the through-entity fields referencing the
	// source and target records.
	LeftField  string
	RightField string
	// UniquePairs enforces at most one join record per (left, right) pair
	// on a through-mediated relationship.
	UniquePairs bool
}

// Qualified returns the store-wide key for this relationship's link set.
func (r *RelationshipDef) Qualified() string {
	return r.Source + "." + r.Name
}

// PairsUnique reports whether the (left, right) pair is constrained unique.
// Plain joins are always unique; through-mediated joins only when declared.
func (r *RelationshipDef) PairsUnique() bool {
	return r.Through == "" || r.UniquePairs
}

// Link is one edge instance of a many-to-many relationship. ThroughID is
// the join record's identity when the relationship declares a through
// entity, empty otherwise. Links preserve insertion order.
type Link struct {
	Rel       string `json:"rel"`
	LeftID    string `json:"left_id"`
	RightID   string `json:"right_id"`
	ThroughID string `json:"through_id,omitempty"`
}
