package analyzer

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"

	"github.com/aMonteSl/codexr-mcp/model"
)

// analyzeGoSource extracts functions and type declarations from Go source.
// Struct and interface types count as classes.
func analyzeGoSource(path string, src []byte) ([]model.FunctionMetrics, int, error) {
	fileSet := token.NewFileSet()
	file, err := parser.ParseFile(fileSet, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing go source: %w", err)
	}

	var functions []model.FunctionMetrics
	classes := 0
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			functions = append(functions, goFunction(fileSet, d))
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				switch typeSpec.Type.(type) {
				case *ast.StructType, *ast.InterfaceType:
					classes++
				}
			}
		}
	}
	return functions, classes, nil
}

func goFunction(fileSet *token.FileSet, decl *ast.FuncDecl) model.FunctionMetrics {
	name := decl.Name.Name
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		if recv := receiverTypeName(decl.Recv.List[0].Type); recv != "" {
			name = recv + "." + name
		}
	}
	start := fileSet.Position(decl.Pos()).Line
	end := fileSet.Position(decl.End()).Line
	return model.FunctionMetrics{
		Name:       name,
		StartLine:  start,
		EndLine:    end,
		LineCount:  end - start + 1,
		Complexity: cyclomaticComplexity(decl.Body),
		Parameters: countParameters(decl.Type),
	}
}

func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}

func countParameters(funcType *ast.FuncType) int {
	if funcType.Params == nil {
		return 0
	}
	count := 0
	for _, param := range funcType.Params.List {
		if len(param.Names) == 0 {
			count++
		} else {
			count += len(param.Names)
		}
	}
	return count
}

// cyclomaticComplexity is 1 plus one per branch point: conditionals, loops,
// non-default cases and short-circuit boolean operators.
func cyclomaticComplexity(body *ast.BlockStmt) int {
	if body == nil {
		return 1
	}
	complexity := 1
	ast.Inspect(body, func(n ast.Node) bool {
		switch node := n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt:
			complexity++
		case *ast.CaseClause:
			if node.List != nil {
				complexity++
			}
		case *ast.CommClause:
			if node.Comm != nil {
				complexity++
			}
		case *ast.BinaryExpr:
			if node.Op == token.LAND || node.Op == token.LOR {
				complexity++
			}
		}
		return true
	})
	return complexity
}
