package decisionkit

import "errors"

var (
	// ErrExperimentKeyNotFound is returned when an operation references an
	// experiment key absent from the current datafile.
	ErrExperimentKeyNotFound = errors.New("experiment key not found in datafile")
	// ErrFeatureKeyNotFound is returned when an operation references a
	// feature key absent from the current datafile.
	ErrFeatureKeyNotFound = errors.New("feature key not found in datafile")
	// ErrVariableKeyNotFound is returned when a feature has no variable with
	// the requested key.
	ErrVariableKeyNotFound = errors.New("feature variable key not found")
	// ErrVariableTypeMismatch is returned when a typed variable getter is
	// called for a variable declared with a different type.
	ErrVariableTypeMismatch = errors.New("feature variable type mismatch")
	// ErrEmptyUserID rejects decision and tracking calls without a user id.
	ErrEmptyUserID = errors.New("user id must not be empty")
	// ErrClientClosed is returned by operations after Close.
	ErrClientClosed = errors.New("client is closed")
)
