package entities

// DefaultRegistry builds the demo schema that ships with strata: a small
// catalogue of entities covering every relationship shape and field
// constraint the store supports. The CLI's --demo bootstrap and most tests
// run against it.
func DefaultRegistry() (*Registry, error) {
	r := NewRegistry()

	if err := r.DefineBase(AbstractBase{
		Name: "common_info",
		Fields: []Field{
			{Name: "name", Type: FieldString, MaxLength: 100, Required: true},
			{Name: "age", Type: FieldInt, Required: true},
		},
		Ordering: []OrderKey{{Field: "name"}},
	}); err != nil {
		return nil, err
	}

	defs := []*EntityDef{
		{
			Name: "musician",
			Fields: []Field{
				{Name: "first_name", Type: FieldString, MaxLength: 50, Required: true},
				{Name: "last_name", Type: FieldString, MaxLength: 50, Required: true},
				{Name: "instrument", Type: FieldString, MaxLength: 100},
			},
		},
		{
			Name: "album",
			Fields: []Field{
				{Name: "artist", Type: FieldString, Ref: "musician", Required: true},
				{Name: "name", Type: FieldString, MaxLength: 100, Required: true},
				{Name: "release_date", Type: FieldDate, Required: true},
				{Name: "num_stars", Type: FieldInt, Required: true},
			},
		},
		{
			Name: "topping",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 50, Required: true},
			},
		},
		{
			Name: "pizza",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 100, Required: true},
			},
		},
		{
			Name: "person",
			Fields: []Field{
				{Name: "first_name", Type: FieldString, MaxLength: 30, Required: true},
				{Name: "last_name", Type: FieldString, MaxLength: 30, Required: true},
			},
		},
		{
			Name: "group",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 128, Required: true},
			},
		},
		{
			Name: "membership",
			Fields: []Field{
				{Name: "person", Type: FieldString, Ref: "person", Required: true},
				{Name: "group", Type: FieldString, Ref: "group", Required: true},
				{Name: "date_joined", Type: FieldDate, Required: true},
				{Name: "invite_reason", Type: FieldString, MaxLength: 64},
			},
		},
		{
			Name: "place",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 50, Required: true},
				{Name: "address", Type: FieldString, MaxLength: 80},
			},
		},
		{
			Name:    "restaurant",
			Extends: "place",
			Fields: []Field{
				{Name: "serves_hot_dogs", Type: FieldBool, Default: false},
				{Name: "serves_pizza", Type: FieldBool, Default: false},
			},
		},
		{
			Name: "student",
			Fields: []Field{
				{Name: "first_name", Type: FieldString, MaxLength: 30, Required: true},
				{Name: "last_name", Type: FieldString, MaxLength: 30, Required: true},
				{Name: "year_in_school", Type: FieldString, MaxLength: 2,
					Choices: []any{"FR", "SO", "JR", "SR", "GR"}, Default: "FR"},
				{Name: "graduation_year", Type: FieldInt},
				{Name: "email", Type: FieldString, MaxLength: 254, Required: true, Unique: true},
			},
		},
		{
			Name: "student_child",
			Base: "common_info",
			Fields: []Field{
				{Name: "home_group", Type: FieldString, MaxLength: 5},
			},
		},
		{
			Name: "author",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 100, Required: true},
				{Name: "email", Type: FieldString, MaxLength: 254, Required: true},
				{Name: "birth_date", Type: FieldDate},
				{Name: "bio", Type: FieldText},
			},
			Ordering: []OrderKey{{Field: "name"}},
		},
		{
			Name: "category",
			Fields: []Field{
				{Name: "name", Type: FieldString, MaxLength: 50, Required: true},
				{Name: "description", Type: FieldText},
			},
		},
		{
			Name: "book",
			Fields: []Field{
				{Name: "title", Type: FieldString, MaxLength: 200, Required: true},
				{Name: "author", Type: FieldString, Ref: "author", Required: true},
				{Name: "category", Type: FieldString, Ref: "category"},
				{Name: "publication_date", Type: FieldDate, Required: true},
				{Name: "pages", Type: FieldInt, Default: 0},
				{Name: "isbn", Type: FieldString, MaxLength: 13, Required: true, Unique: true},
				{Name: "price", Type: FieldFloat, Default: 0.0},
				{Name: "is_available", Type: FieldBool, Default: true},
			},
			Ordering: []OrderKey{{Field: "title"}},
		},
		{
			Name:       "review",
			Timestamps: true,
			Fields: []Field{
				{Name: "book", Type: FieldString, Ref: "book", Required: true},
				{Name: "reviewer_name", Type: FieldString, MaxLength: 100, Required: true},
				{Name: "rating", Type: FieldInt, Required: true,
					Choices: []any{1, 2, 3, 4, 5}},
				{Name: "comment", Type: FieldText},
			},
			Ordering: []OrderKey{{Field: "created_at", Desc: true}},
		},
	}

	for _, def := range defs {
		if err := r.Define(def); err != nil {
			return nil, err
		}
	}

	rels := []*RelationshipDef{
		{Name: "artist", Kind: ManyToOne, Source: "album", Target: "musician",
			Field: "artist", OnDelete: DeleteCascade},
		{Name: "toppings", Kind: ManyToMany, Source: "pizza", Target: "topping"},
		{Name: "members", Kind: ManyToMany, Source: "group", Target: "person",
			Through: "membership", LeftField: "group", RightField: "person", UniquePairs: true},
		{Name: "person", Kind: ManyToOne, Source: "membership", Target: "person",
			Field: "person", OnDelete: DeleteCascade},
		{Name: "group", Kind: ManyToOne, Source: "membership", Target: "group",
			Field: "group", OnDelete: DeleteCascade},
		{Name: "author", Kind: ManyToOne, Source: "book", Target: "author",
			Field: "author", OnDelete: DeleteCascade},
		{Name: "category", Kind: ManyToOne, Source: "book", Target: "category",
			Field: "category", OnDelete: DeleteSetNull},
		{Name: "book", Kind: ManyToOne, Source: "review", Target: "book",
			Field: "book", OnDelete: DeleteCascade},
	}
	for _, rel := range rels {
		if err := r.DefineRelationship(rel); err != nil {
			return nil, err
		}
	}

	r.Freeze()
	return r, nil
}
