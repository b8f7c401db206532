package txloop_test

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"

	"github.com/strata-db/strata/tools/strata-lint/analyzers/txloop"
)

func TestAnalyzer(t *testing.T) {
	testdata := analysistest.TestData()
	analysistest.Run(t, testdata, txloop.Analyzer, "a")
}
