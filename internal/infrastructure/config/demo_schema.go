package config

// DemoSchemaYAML is the schema file written by `strata bootstrap --demo`.
// It declares the same catalogue as entities.DefaultRegistry.
const DemoSchemaYAML = `bases:
  - name: common_info
    fields:
      - {name: name, type: string, max_length: 100, required: true}
      - {name: age, type: int, required: true}
    ordering: [name]

entities:
  - name: musician
    fields:
      - {name: first_name, type: string, max_length: 50, required: true}
      - {name: last_name, type: string, max_length: 50, required: true}
      - {name: instrument, type: string, max_length: 100}
  - name: album
    fields:
      - {name: artist, type: string, ref: musician, required: true}
      - {name: name, type: string, max_length: 100, required: true}
      - {name: release_date, type: date, required: true}
      - {name: num_stars, type: int, required: true}
  - name: topping
    fields:
      - {name: name, type: string, max_length: 50, required: true}
  - name: pizza
    fields:
      - {name: name, type: string, max_length: 100, required: true}
  - name: person
    fields:
      - {name: first_name, type: string, max_length: 30, required: true}
      - {name: last_name, type: string, max_length: 30, required: true}
  - name: group
    fields:
      - {name: name, type: string, max_length: 128, required: true}
  - name: membership
    fields:
      - {name: person, type: string, ref: person, required: true}
      - {name: group, type: string, ref: group, required: true}
      - {name: date_joined, type: date, required: true}
      - {name: invite_reason, type: string, max_length: 64}
  - name: place
    fields:
      - {name: name, type: string, max_length: 50, required: true}
      - {name: address, type: string, max_length: 80}
  - name: restaurant
    extends: place
    fields:
      - {name: serves_hot_dogs, type: bool, default: false}
      - {name: serves_pizza, type: bool, default: false}
  - name: student
    fields:
      - {name: first_name, type: string, max_length: 30, required: true}
      - {name: last_name, type: string, max_length: 30, required: true}
      - {name: year_in_school, type: string, max_length: 2, default: FR,
         choices: [FR, SO, JR, SR, GR]}
      - {name: graduation_year, type: int}
      - {name: email, type: string, max_length: 254, required: true, unique: true}
  - name: student_child
    base: common_info
    fields:
      - {name: home_group, type: string, max_length: 5}
  - name: author
    ordering: [name]
    fields:
      - {name: name, type: string, max_length: 100, required: true}
      - {name: email, type: string, max_length: 254, required: true}
      - {name: birth_date, type: date}
      - {name: bio, type: text}
  - name: category
    fields:
      - {name: name, type: string, max_length: 50, required: true}
      - {name: description, type: text}
  - name: book
    ordering: [title]
    fields:
      - {name: title, type: string, max_length: 200, required: true}
      - {name: author, type: string, ref: author, required: true}
      - {name: category, type: string, ref: category}
      - {name: publication_date, type: date, required: true}
      - {name: pages, type: int, default: 0}
      - {name: isbn, type: string, max_length: 13, required: true, unique: true}
      - {name: price, type: float, default: 0.0}
      - {name: is_available, type: bool, default: true}
  - name: review
    timestamps: true
    ordering: [-created_at]
    fields:
      - {name: book, type: string, ref: book, required: true}
      - {name: reviewer_name, type: string, max_length: 100, required: true}
      - {name: rating, type: int, required: true, choices: [1, 2, 3, 4, 5]}
      - {name: comment, type: text}

relationships:
  - {name: artist, kind: many_to_one, source: album, target: musician,
     field: artist, on_delete: cascade}
  - {name: toppings, kind: many_to_many, source: pizza, target: topping}
  - {name: members, kind: many_to_many, source: group, target: person,
     through: membership, left_field: group, right_field: person, unique: true}
  - {name: person, kind: many_to_one, source: membership, target: person,
     field: person, on_delete: cascade}
  - {name: group, kind: many_to_one, source: membership, target: group,
     field: group, on_delete: cascade}
  - {name: author, kind: many_to_one, source: book, target: author,
     field: author, on_delete: cascade}
  - {name: category, kind: many_to_one, source: book, target: category,
     field: category, on_delete: set_null}
  - {name: book, kind: many_to_one, source: review, target: book,
     field: book, on_delete: cascade}
`
