package dao

import (
	"fmt"
	"log"
	"sort"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// ExtractVariables parses an expr expression and returns the variable names
// it references, sorted. Built-in call names reached through the callee chain
// are filtered by the caller against its known function set.
func ExtractVariables(code string) ([]string, error) {
	tree, err := parser.Parse(code)
	if err != nil {
		return nil, fmt.Errorf("failed to parse expression: %w", err)
	}

	variables := make(map[string]struct{})
	walk(tree.Node, variables)

	var result []string
	for v := range variables {
		result = append(result, v)
	}

	sort.Strings(result)

	return result, nil
}

func walk(node ast.Node, variables map[string]struct{}) {
	if node == nil {
		return
	}

	switch n := node.(type) {
	case *ast.IdentifierNode:
		variables[n.Value] = struct{}{}

	case *ast.BinaryNode:
		walk(n.Left, variables)
		walk(n.Right, variables)

	case *ast.UnaryNode:
		walk(n.Node, variables)

	case *ast.MemberNode:
		walk(n.Node, variables)

	case *ast.CallNode:
		for _, arg := range n.Arguments {
			walk(arg, variables)
		}
		if _, ok := n.Callee.(*ast.IdentifierNode); !ok {
			walk(n.Callee, variables)
		}

	case *ast.ConditionalNode:
		walk(n.Cond, variables)
		walk(n.Exp1, variables)
		walk(n.Exp2, variables)

	case *ast.ArrayNode:
		for _, elem := range n.Nodes {
			walk(elem, variables)
		}

	case *ast.MapNode:
		for _, pair := range n.Pairs {
			walk(pair, variables)
		}

	case *ast.PairNode:
		walk(n.Key, variables)
		walk(n.Value, variables)

	case *ast.NilNode, *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode, *ast.StringNode:
		// Do nothing

	default:
		log.Printf("unhandled node type: %T\n", n)
	}
}
