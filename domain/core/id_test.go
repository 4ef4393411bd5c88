package core

import (
	"testing"
)

// TestNewResultIDDeterministic tests that identical requests map to one ID
func TestNewResultIDDeterministic(t *testing.T) {
	a := NewResultID(ComputeRequestHash("routes", []string{"north"}, map[string][]string{"area": {"urban"}}))
	b := NewResultID(ComputeRequestHash("routes", []string{"north"}, map[string][]string{"area": {"urban"}}))

	if a.IsEmpty() {
		t.Fatal("Expected non-empty result ID")
	}
	if a != b {
		t.Errorf("Expected identical IDs, got %s and %s", a, b)
	}
}

// TestNewResultIDDistinguishesFilters tests that filters are part of the key
func TestNewResultIDDistinguishesFilters(t *testing.T) {
	single := NewResultID(ComputeRequestHash("routes", []string{"north"}, nil))
	subset := NewResultID(ComputeRequestHash("routes", []string{"north"}, map[string][]string{"area": {"urban"}}))
	other := NewResultID(ComputeRequestHash("coverage", []string{"north"}, nil))

	if single == subset {
		t.Error("Expected subset filter to change the result ID")
	}
	if single == other {
		t.Error("Expected metric id to change the result ID")
	}
}

// TestCanonicalRequestOrderInsensitive tests permutation invariance
func TestCanonicalRequestOrderInsensitive(t *testing.T) {
	a := CanonicalRequest("m", []string{"b", "a"}, map[string][]string{"x": {"2", "1"}, "y": {"z"}})
	b := CanonicalRequest("m", []string{"a", "b"}, map[string][]string{"y": {"z"}, "x": {"1", "2"}})

	if a != b {
		t.Errorf("Expected order-insensitive canonical form:\n%s\n%s", a, b)
	}
}

// TestCanonicalRequestDoesNotMutate tests inputs are left untouched
func TestCanonicalRequestDoesNotMutate(t *testing.T) {
	entities := []string{"b", "a"}
	_ = CanonicalRequest("m", entities, nil)
	if entities[0] != "b" {
		t.Error("Expected entity slice to keep its order")
	}
}

// TestParseMetricID tests metric ID parsing
func TestParseMetricID(t *testing.T) {
	if _, err := ParseMetricID("  "); err == nil {
		t.Error("Expected error for blank metric ID")
	}
	id, err := ParseMetricID(" routes_per_100k ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if id.String() != "routes_per_100k" {
		t.Errorf("Expected trimmed ID, got %q", id)
	}
}

// TestClassify tests the error taxonomy mapping
func TestClassify(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NewInsufficientDataError(4, 5), CodeInsufficientEvidence},
		{ErrZeroDenominator, CodeInsufficientEvidence},
		{NewMissingColumnError("population"), CodeMissingColumn},
		{ErrInvalidContext, CodeInvalidContext},
		{ErrNoCostModel, CodeConfiguration},
		{ErrFormatFallback, CodeFormatFallback},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
