package condition

import "errors"

// Predefined errors for the condition package.
var (
	// ErrInvalidConditionFormat indicates the condition document could not be
	// parsed into a condition tree.
	ErrInvalidConditionFormat = errors.New("invalid condition format")

	// ErrEmptyCondition indicates an empty condition document was supplied
	// where a tree was expected.
	ErrEmptyCondition = errors.New("empty condition document")
)
