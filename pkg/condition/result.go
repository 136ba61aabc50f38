package condition

// Result is the tri-state outcome of a condition evaluation. Unknown is the
// zero value so that an undecided evaluation can never be mistaken for a
// definite match.
type Result int

const (
	// Unknown means the condition could not be decided from the available
	// data. Callers treat it as "not matched" for targeting.
	Unknown Result = iota
	// False means the condition definitely did not match.
	False
	// True means the condition matched.
	True
)

// String implements fmt.Stringer.
func (r Result) String() string {
	switch r {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// Matched reports whether the result is a definite match.
func (r Result) Matched() bool {
	return r == True
}

// not negates a definite result and preserves Unknown.
func (r Result) not() Result {
	switch r {
	case True:
		return False
	case False:
		return True
	default:
		return Unknown
	}
}

// resultOf converts a definite boolean comparison outcome to a Result.
func resultOf(b bool) Result {
	if b {
		return True
	}
	return False
}
