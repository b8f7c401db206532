// Package txloop detects store transactions opened inside loops.
package txloop

import (
	"go/ast"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer detects Apply calls inside loops. Each Apply takes the store's
// write lock for the whole callback, so per-item transactions serialize
// badly and lose all-or-nothing semantics across the batch.
var Analyzer = &analysis.Analyzer{
	Name:     "txloop",
	Doc:      "detects store transactions opened inside loops that should span the batch",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	inspect := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)

	nodeFilter := []ast.Node{
		(*ast.RangeStmt)(nil),
		(*ast.ForStmt)(nil),
	}

	inspect.Preorder(nodeFilter, func(n ast.Node) {
		var body *ast.BlockStmt
		switch stmt := n.(type) {
		case *ast.RangeStmt:
			body = stmt.Body
		case *ast.ForStmt:
			body = stmt.Body
		}
		if body == nil {
			return
		}

		ast.Inspect(body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			if sel.Sel.Name == "Apply" {
				pass.Reportf(call.Pos(),
					"transaction per iteration: Apply called inside loop - move the loop into one Apply")
			}

			return true
		})
	})

	return nil, nil
}
