// Package analyzers provides all custom static analyzers for strata.
package analyzers

import (
	"golang.org/x/tools/go/analysis"

	"github.com/strata-db/strata/tools/strata-lint/analyzers/parseloop"
	"github.com/strata-db/strata/tools/strata-lint/analyzers/txloop"
)

// All returns all analyzers to run.
func All() []*analysis.Analyzer {
	return []*analysis.Analyzer{
		txloop.Analyzer,
		parseloop.Analyzer,
	}
}
