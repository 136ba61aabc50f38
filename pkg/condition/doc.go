// Package condition implements the tri-state audience condition evaluator used
// for experiment and rollout targeting.
//
// A condition tree is parsed once from its datafile JSON representation into a
// tagged-variant AST and walked on every evaluation. Evaluation is pure and
// stateless: the same tree can be shared by any number of goroutines without
// synchronization.
//
// # Tri-state logic
//
// Evaluation returns a Result with three values: True, False, and Unknown.
// Unknown means the condition could not be decided from the available data;
// the attribute is missing, has an unexpected runtime type, or the match kind
// is not recognized by this client. Callers treat Unknown as "not matched" for
// targeting purposes, but the state is surfaced distinctly from False so that
// diagnostics and tests can tell the two apart.
//
// Composite operators follow three-valued logic:
//
//   - and: False if any child is False; else Unknown if any child is Unknown;
//     else True. An empty child list is True.
//   - or: True if any child is True; else Unknown if any child is Unknown;
//     else False. An empty child list is False.
//   - not: negates its single child; Unknown stays Unknown; a missing child is
//     Unknown.
//
// The empty-list asymmetry (and([])=True, or([])=False, not([])=Unknown) is
// intentional and must not be "fixed": cross-client consistency of bucketing
// and targeting outranks local intuition.
//
// # Usage
//
//	node, err := condition.Parse(rawConditions)
//	if err != nil {
//	    // malformed condition document
//	}
//
//	result := node.Evaluate(map[string]any{"country": "de"}, resolver)
//	if result == condition.True {
//	    // audience matched
//	}
//
// The Resolver argument resolves audience-id references embedded in
// experiment-level condition trees; pass nil when the tree contains only
// attribute leaves.
package condition
