// Package envelopeonly reports calls to net/http.Error. API handlers answer
// failures with the {"ok":false,"error":code} JSON envelope, and http.Error
// writes a text/plain body instead.
package envelopeonly

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

var Analyzer = &analysis.Analyzer{
	Name:     "envelopeonly",
	Doc:      "prohibits http.Error outside package main and tests; errors must use the JSON envelope",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() == "main" {
		return nil, nil
	}

	insp := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call := n.(*ast.CallExpr)
		if strings.HasSuffix(pass.Fset.File(call.Pos()).Name(), "_test.go") {
			return
		}
		sel, ok := call.Fun.(*ast.SelectorExpr)
		if !ok {
			return
		}
		callee, ok := pass.TypesInfo.Uses[sel.Sel].(*types.Func)
		if !ok || callee.Pkg() == nil {
			return
		}
		if callee.Pkg().Path() == "net/http" && callee.Name() == "Error" {
			pass.Reportf(call.Pos(), "http.Error writes text/plain; write the JSON error envelope instead")
		}
	})

	return nil, nil
}
