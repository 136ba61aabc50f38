package condition

import "strings"

// Condition types and match kinds recognized by this client. Anything else is
// parsed for forward compatibility but evaluates to Unknown.
const (
	typeCustomAttribute = "custom_attribute"

	MatchExact     = "exact"
	MatchExists    = "exists"
	MatchSubstring = "substring"
	MatchLT        = "lt"
	MatchLE        = "le"
	MatchGT        = "gt"
	MatchGE        = "ge"
	MatchSemverEQ  = "semver_eq"
	MatchSemverLT  = "semver_lt"
	MatchSemverLE  = "semver_le"
	MatchSemverGT  = "semver_gt"
	MatchSemverGE  = "semver_ge"
)

// Leaf is a single attribute condition.
type Leaf struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Match string `json:"match,omitempty"`
	Value any    `json:"value,omitempty"`
}

// Evaluate compares the leaf against the user attributes. A missing attribute,
// a runtime type the match kind cannot handle, or an unrecognized match/type
// all yield Unknown rather than an error.
func (l *Leaf) Evaluate(attributes map[string]any, _ Resolver) Result {
	// Newer datafiles may carry condition types this client predates.
	if l.Type != typeCustomAttribute {
		return Unknown
	}

	// Legacy audiences omit the match kind and mean "exact".
	match := l.Match
	if match == "" {
		match = MatchExact
	}

	userValue, present := attributes[l.Name]

	if match == MatchExists {
		return resultOf(present && userValue != nil)
	}

	// All remaining matches need both sides to be usable values.
	if !present || userValue == nil || l.Value == nil {
		return Unknown
	}

	switch match {
	case MatchExact:
		return matchExact(l.Value, userValue)
	case MatchSubstring:
		return matchSubstring(l.Value, userValue)
	case MatchLT, MatchLE, MatchGT, MatchGE:
		return matchNumeric(match, l.Value, userValue)
	case MatchSemverEQ, MatchSemverLT, MatchSemverLE, MatchSemverGT, MatchSemverGE:
		return matchSemver(match, l.Value, userValue)
	default:
		return Unknown
	}
}

func matchExact(conditionValue, userValue any) Result {
	switch expected := conditionValue.(type) {
	case string:
		actual, ok := userValue.(string)
		if !ok {
			return Unknown
		}
		return resultOf(actual == expected)
	case bool:
		actual, ok := userValue.(bool)
		if !ok {
			return Unknown
		}
		return resultOf(actual == expected)
	default:
		expectedNum, ok := numericValue(conditionValue)
		if !ok {
			return Unknown
		}
		actualNum, ok := numericValue(userValue)
		if !ok {
			return Unknown
		}
		return resultOf(actualNum == expectedNum)
	}
}

func matchSubstring(conditionValue, userValue any) Result {
	expected, ok := conditionValue.(string)
	if !ok {
		return Unknown
	}
	actual, ok := userValue.(string)
	if !ok {
		return Unknown
	}
	return resultOf(strings.Contains(actual, expected))
}

func matchNumeric(match string, conditionValue, userValue any) Result {
	expected, ok := numericValue(conditionValue)
	if !ok {
		return Unknown
	}
	actual, ok := numericValue(userValue)
	if !ok {
		return Unknown
	}

	switch match {
	case MatchLT:
		return resultOf(actual < expected)
	case MatchLE:
		return resultOf(actual <= expected)
	case MatchGT:
		return resultOf(actual > expected)
	case MatchGE:
		return resultOf(actual >= expected)
	default:
		return Unknown
	}
}

func matchSemver(match string, conditionValue, userValue any) Result {
	target, ok := conditionValue.(string)
	if !ok {
		return Unknown
	}
	actual, ok := userValue.(string)
	if !ok {
		return Unknown
	}

	cmp, err := compareVersion(actual, target)
	if err != nil {
		return Unknown
	}

	switch match {
	case MatchSemverEQ:
		return resultOf(cmp == 0)
	case MatchSemverLT:
		return resultOf(cmp < 0)
	case MatchSemverLE:
		return resultOf(cmp <= 0)
	case MatchSemverGT:
		return resultOf(cmp > 0)
	case MatchSemverGE:
		return resultOf(cmp >= 0)
	default:
		return Unknown
	}
}
