package where

import (
	"strconv"

	"github.com/fraiseql/fraiseql-sub006/core/internal/errs"
	"github.com/fraiseql/fraiseql-sub006/core/internal/graph"
)

// nodeValue converts a literal graph.Node into the Go value bound to a
// parameter placeholder. Variable references must already be substituted by
// the planner before a node reaches the where compiler.
func nodeValue(node *graph.Node) (interface{}, error) {
	switch node.Type {
	case graph.NodeStr:
		return node.Val, nil
	case graph.NodeBool:
		return node.Val == "true", nil
	case graph.NodeNull:
		return nil, nil
	case graph.NodeNum:
		if i, err := strconv.ParseInt(node.Val, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(node.Val, 64)
		if err != nil {
			return nil, errs.New(errs.KindValidation, "malformed numeric literal")
		}
		return f, nil
	case graph.NodeList:
		vals := make([]interface{}, 0, len(node.Children))
		for _, c := range node.Children {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
		}
		return vals, nil
	case graph.NodeVar:
		return nil, errs.New(errs.KindValidation, "unresolved variable $%s in where clause", node.Val)
	default:
		return nil, errs.New(errs.KindValidation, "value node of type %d cannot be used as a scalar", node.Type)
	}
}

func nodeValueAsSlice(node *graph.Node) ([]interface{}, bool) {
	if node.Type != graph.NodeList {
		return nil, false
	}
	vals := make([]interface{}, 0, len(node.Children))
	for _, c := range node.Children {
		v, err := nodeValue(c)
		if err != nil {
			return nil, false
		}
		vals = append(vals, v)
	}
	return vals, true
}
