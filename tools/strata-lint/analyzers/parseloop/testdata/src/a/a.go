package a

import "a/query"

func bad(exprs []string, records []string) {
	for range records {
		query.Parse("num_stars > 3") // want "expression re-parsed per iteration"
	}
}

func good(records []string) {
	pred, _ := query.Parse("num_stars > 3")
	for range records {
		_ = pred
	}
}
