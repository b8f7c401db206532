package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse turns a filter expression string into a predicate tree.
//
// Supported forms:
//   - "field == value", "field != value"
//   - "field > value" and >=, <, <=
//   - "field contains value"
//   - "field in (a, b, c)"
//   - "field is null", "field is not null"
//   - clauses joined with AND / OR (AND binds tighter)
//
// Values are parsed as int, float or bool when they look like one, as a
// string otherwise; single or double quotes force a string.
func Parse(expr string) (Predicate, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	orParts := splitTop(expr, " or ")
	if len(orParts) > 1 {
		preds := make([]Predicate, 0, len(orParts))
		for _, part := range orParts {
			p, err := Parse(part)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return Or{Preds: preds}, nil
	}

	andParts := splitTop(expr, " and ")
	if len(andParts) > 1 {
		preds := make([]Predicate, 0, len(andParts))
		for _, part := range andParts {
			p, err := Parse(part)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		return And{Preds: preds}, nil
	}

	return parseClause(expr)
}

// splitTop splits on a lowercase separator outside parentheses and quotes.
func splitTop(expr, sep string) []string {
	var parts []string
	lower := strings.ToLower(expr)
	depth := 0
	var quote byte
	start := 0
	for i := 0; i+len(sep) <= len(expr); i++ {
		c := expr[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '(':
			depth++
		case c == ')':
			depth--
		case depth == 0 && lower[i:i+len(sep)] == sep:
			parts = append(parts, expr[start:i])
			start = i + len(sep)
			i += len(sep) - 1
		}
	}
	parts = append(parts, expr[start:])
	return parts
}

func parseClause(clause string) (Predicate, error) {
	clause = strings.TrimSpace(clause)
	lower := strings.ToLower(clause)

	if field, ok := strings.CutSuffix(lower, " is not null"); ok {
		return Not{Pred: IsNull{Field: strings.TrimSpace(clause[:len(field)])}}, nil
	}
	if field, ok := strings.CutSuffix(lower, " is null"); ok {
		return IsNull{Field: strings.TrimSpace(clause[:len(field)])}, nil
	}

	if i := strings.Index(lower, " in ("); i >= 0 && strings.HasSuffix(clause, ")") {
		field := strings.TrimSpace(clause[:i])
		list := clause[i+len(" in (") : len(clause)-1]
		var values []any
		for _, raw := range strings.Split(list, ",") {
			values = append(values, parseLiteral(raw))
		}
		return In{Field: field, Values: values}, nil
	}

	if i := strings.Index(lower, " contains "); i >= 0 {
		field := strings.TrimSpace(clause[:i])
		value := parseLiteral(clause[i+len(" contains "):])
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("contains needs a string value in %q", clause)
		}
		return Contains{Field: field, Substring: s}, nil
	}

	// Longest operators first so ">=" is not read as ">".
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<", "="} {
		if i := strings.Index(clause, op); i > 0 {
			field := strings.TrimSpace(clause[:i])
			value := parseLiteral(clause[i+len(op):])
			switch op {
			case "==", "=":
				return Eq{Field: field, Value: value}, nil
			case "!=":
				return Ne{Field: field, Value: value}, nil
			case ">=":
				return Gte{Field: field, Value: value}, nil
			case "<=":
				return Lte{Field: field, Value: value}, nil
			case ">":
				return Gt{Field: field, Value: value}, nil
			case "<":
				return Lt{Field: field, Value: value}, nil
			}
		}
	}

	return nil, fmt.Errorf("cannot parse filter clause %q", clause)
}

// parseLiteral interprets a raw token as int, float, bool or string.
func parseLiteral(raw string) any {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 {
		if (raw[0] == '\'' && raw[len(raw)-1] == '\'') || (raw[0] == '"' && raw[len(raw)-1] == '"') {
			return raw[1 : len(raw)-1]
		}
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}
