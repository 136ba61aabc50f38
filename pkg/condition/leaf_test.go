package condition_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/decisionkit/pkg/condition"
)

func TestLeafExact(t *testing.T) {
	tests := []struct {
		name  string
		leaf  condition.Leaf
		attrs map[string]any
		want  condition.Result
	}{
		{
			name:  "string match",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "exact", Value: "de"},
			attrs: map[string]any{"country": "de"},
			want:  condition.True,
		},
		{
			name:  "string mismatch",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "exact", Value: "de"},
			attrs: map[string]any{"country": "us"},
			want:  condition.False,
		},
		{
			name:  "missing attribute is unknown",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "exact", Value: "de"},
			attrs: map[string]any{},
			want:  condition.Unknown,
		},
		{
			name:  "wrong runtime type is unknown",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "exact", Value: "de"},
			attrs: map[string]any{"country": 42},
			want:  condition.Unknown,
		},
		{
			name:  "bool match",
			leaf:  condition.Leaf{Name: "beta", Type: "custom_attribute", Match: "exact", Value: true},
			attrs: map[string]any{"beta": true},
			want:  condition.True,
		},
		{
			name:  "int attribute against float condition",
			leaf:  condition.Leaf{Name: "age", Type: "custom_attribute", Match: "exact", Value: float64(30)},
			attrs: map[string]any{"age": 30},
			want:  condition.True,
		},
		{
			name:  "default match is exact",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Value: "de"},
			attrs: map[string]any{"country": "de"},
			want:  condition.True,
		},
		{
			name:  "unrecognized condition type is unknown",
			leaf:  condition.Leaf{Name: "country", Type: "third_party_dimension", Match: "exact", Value: "de"},
			attrs: map[string]any{"country": "de"},
			want:  condition.Unknown,
		},
		{
			name:  "unrecognized match is unknown",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "regex", Value: "de"},
			attrs: map[string]any{"country": "de"},
			want:  condition.Unknown,
		},
		{
			name:  "nil condition value is unknown",
			leaf:  condition.Leaf{Name: "country", Type: "custom_attribute", Match: "exact"},
			attrs: map[string]any{"country": "de"},
			want:  condition.Unknown,
		},
		{
			name:  "oversized number is unknown",
			leaf:  condition.Leaf{Name: "n", Type: "custom_attribute", Match: "exact", Value: float64(10)},
			attrs: map[string]any{"n": 1e16},
			want:  condition.Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.leaf.Evaluate(tt.attrs, nil))
		})
	}
}

func TestLeafExists(t *testing.T) {
	leaf := condition.Leaf{Name: "plan", Type: "custom_attribute", Match: "exists"}

	assert.Equal(t, condition.True, leaf.Evaluate(map[string]any{"plan": "pro"}, nil))
	assert.Equal(t, condition.True, leaf.Evaluate(map[string]any{"plan": 0}, nil))
	assert.Equal(t, condition.False, leaf.Evaluate(map[string]any{}, nil))
	assert.Equal(t, condition.False, leaf.Evaluate(map[string]any{"plan": nil}, nil))
}

func TestLeafSubstring(t *testing.T) {
	leaf := condition.Leaf{Name: "ua", Type: "custom_attribute", Match: "substring", Value: "Mobile"}

	assert.Equal(t, condition.True, leaf.Evaluate(map[string]any{"ua": "Mozilla Mobile Safari"}, nil))
	assert.Equal(t, condition.False, leaf.Evaluate(map[string]any{"ua": "Mozilla Desktop"}, nil))
	assert.Equal(t, condition.Unknown, leaf.Evaluate(map[string]any{"ua": 10}, nil))
}

func TestLeafNumericComparisons(t *testing.T) {
	tests := []struct {
		match string
		attr  float64
		want  condition.Result
	}{
		{"lt", 17, condition.True},
		{"lt", 18, condition.False},
		{"le", 18, condition.True},
		{"le", 19, condition.False},
		{"gt", 19, condition.True},
		{"gt", 18, condition.False},
		{"ge", 18, condition.True},
		{"ge", 17, condition.False},
	}

	for _, tt := range tests {
		t.Run(tt.match, func(t *testing.T) {
			leaf := condition.Leaf{Name: "age", Type: "custom_attribute", Match: tt.match, Value: float64(18)}
			assert.Equal(t, tt.want, leaf.Evaluate(map[string]any{"age": tt.attr}, nil))
		})
	}

	t.Run("non-numeric attribute is unknown", func(t *testing.T) {
		leaf := condition.Leaf{Name: "age", Type: "custom_attribute", Match: "gt", Value: float64(18)}
		assert.Equal(t, condition.Unknown, leaf.Evaluate(map[string]any{"age": "old"}, nil))
	})

	t.Run("bool is not a number", func(t *testing.T) {
		leaf := condition.Leaf{Name: "age", Type: "custom_attribute", Match: "gt", Value: float64(0)}
		assert.Equal(t, condition.Unknown, leaf.Evaluate(map[string]any{"age": true}, nil))
	})
}

func TestLeafSemver(t *testing.T) {
	tests := []struct {
		name    string
		match   string
		target  string
		version string
		want    condition.Result
	}{
		{"equal full", "semver_eq", "2.1.0", "2.1.0", condition.True},
		{"target precision", "semver_eq", "2.1", "2.1.9", condition.True},
		{"not equal", "semver_eq", "2.1.0", "2.2.0", condition.False},
		{"less", "semver_lt", "2.1.0", "2.0.9", condition.True},
		{"not less", "semver_lt", "2.1.0", "2.1.0", condition.False},
		{"less or equal", "semver_le", "2.1.0", "2.1.0", condition.True},
		{"greater", "semver_gt", "2.1.0", "2.2.0", condition.True},
		{"greater or equal", "semver_ge", "2.1.0", "2.1.0", condition.True},
		{"prerelease below release", "semver_lt", "2.1.0", "2.1.0-beta", condition.True},
		{"malformed version", "semver_eq", "2.1.0", "not.a.version", condition.Unknown},
		{"too many dots", "semver_eq", "2.1.0", "1.2.3.4", condition.Unknown},
		{"whitespace", "semver_eq", "2.1.0", "2.1 .0", condition.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := condition.Leaf{Name: "app_version", Type: "custom_attribute", Match: tt.match, Value: tt.target}
			assert.Equal(t, tt.want, leaf.Evaluate(map[string]any{"app_version": tt.version}, nil))
		})
	}
}
