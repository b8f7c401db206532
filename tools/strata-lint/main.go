// strata-lint is a custom static analyzer for strata store usage patterns.
package main

import (
	"golang.org/x/tools/go/analysis/multichecker"

	"github.com/strata-db/strata/tools/strata-lint/analyzers"
)

func main() {
	multichecker.Main(analyzers.All()...)
}
