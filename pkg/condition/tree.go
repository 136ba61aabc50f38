package condition

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Op is a logical operator joining composite node children.
type Op string

const (
	OpAnd Op = "and"
	OpOr  Op = "or"
	OpNot Op = "not"
)

// Resolver resolves audience-id references embedded in a condition tree.
// Experiment-level condition trees may reference reusable audiences by id;
// the project configuration implements this interface.
type Resolver interface {
	// EvaluateAudience evaluates the audience with the given id against the
	// attributes. Unknown is returned when the id does not resolve.
	EvaluateAudience(id string, attributes map[string]any) Result
}

// Node is a single node of a parsed condition tree.
//
// A node is either a composite (and/or/not over children), an attribute leaf,
// or an audience-id reference. The tree is built once at datafile parse time
// and walked on every evaluation.
type Node interface {
	// Evaluate walks the node against the user attributes. The resolver is
	// consulted for audience-id references and may be nil when the tree is
	// known to contain only attribute leaves.
	Evaluate(attributes map[string]any, resolver Resolver) Result
}

// Composite joins child nodes with a logical operator.
type Composite struct {
	Op       Op
	Children []Node
}

// Evaluate applies three-valued logic over the children.
func (c *Composite) Evaluate(attributes map[string]any, resolver Resolver) Result {
	switch c.Op {
	case OpAnd:
		return evaluateAnd(c.Children, attributes, resolver)
	case OpOr:
		return evaluateOr(c.Children, attributes, resolver)
	case OpNot:
		if len(c.Children) == 0 {
			return Unknown
		}
		return c.Children[0].Evaluate(attributes, resolver).not()
	default:
		return Unknown
	}
}

func evaluateAnd(children []Node, attributes map[string]any, resolver Resolver) Result {
	sawUnknown := false
	for _, child := range children {
		switch child.Evaluate(attributes, resolver) {
		case False:
			return False
		case Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return Unknown
	}
	return True
}

func evaluateOr(children []Node, attributes map[string]any, resolver Resolver) Result {
	sawUnknown := false
	for _, child := range children {
		switch child.Evaluate(attributes, resolver) {
		case True:
			return True
		case Unknown:
			sawUnknown = true
		}
	}
	if sawUnknown {
		return Unknown
	}
	return False
}

// AudienceRef is a leaf referencing a reusable audience by id.
type AudienceRef string

// Evaluate delegates to the resolver. Without a resolver the reference cannot
// be decided.
func (r AudienceRef) Evaluate(attributes map[string]any, resolver Resolver) Result {
	if resolver == nil {
		return Unknown
	}
	return resolver.EvaluateAudience(string(r), attributes)
}

// Parse builds a condition tree from its datafile JSON representation.
//
// Accepted forms:
//
//   - ["and"|"or"|"not", <child>, ...]: a composite node
//   - [<child>, ...] with a non-operator first element: an implicit "or"
//   - {"name": ..., "type": ..., "match": ..., "value": ...}: attribute leaf
//   - "<audienceId>": audience reference
func Parse(raw json.RawMessage) (Node, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyCondition
	}

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Join(ErrInvalidConditionFormat, err)
	}

	switch probe.(type) {
	case string:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errors.Join(ErrInvalidConditionFormat, err)
		}
		return AudienceRef(s), nil
	case []any:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, errors.Join(ErrInvalidConditionFormat, err)
		}
		return parseArray(items)
	case map[string]any:
		leaf := new(Leaf)
		if err := json.Unmarshal(raw, leaf); err != nil {
			return nil, errors.Join(ErrInvalidConditionFormat, err)
		}
		return leaf, nil
	default:
		return nil, fmt.Errorf("%w: unexpected condition element %s", ErrInvalidConditionFormat, string(raw))
	}
}

func parseArray(items []json.RawMessage) (Node, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty condition array", ErrInvalidConditionFormat)
	}

	op, rest, err := splitOperator(items)
	if err != nil {
		return nil, err
	}

	children := make([]Node, 0, len(rest))
	for _, item := range rest {
		child, err := Parse(item)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return &Composite{Op: op, Children: children}, nil
}

// splitOperator extracts the leading operator of a condition array. An array
// that does not start with an operator is an implicit "or" over all elements.
func splitOperator(items []json.RawMessage) (Op, []json.RawMessage, error) {
	var head string
	if err := json.Unmarshal(items[0], &head); err == nil {
		switch op := Op(head); op {
		case OpAnd, OpOr, OpNot:
			return op, items[1:], nil
		default:
			// A bare string that is not an operator is an audience id, so the
			// whole array is an implicit "or" of references.
			return OpOr, items, nil
		}
	}
	return OpOr, items, nil
}
