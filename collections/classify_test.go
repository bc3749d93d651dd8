package collections_test

import (
	"testing"

	"github.com/corredora/collections-engine/collections"
)

// =============================================================================
// CLASSIFICATION AGAINST OUTSTANDING BALANCE
// =============================================================================

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		tendered    string
		outstanding string
		wantClass   collections.Classification
		wantRemain  string
		wantExcess  string
	}{
		{"strictly less is partial", "700.00", "1000.00", collections.ClassPartial, "300.00", "0"},
		{"equal is exact", "1000.00", "1000.00", collections.ClassExact, "0", "0"},
		{"one cent under is exact", "999.99", "1000.00", collections.ClassExact, "0", "0"},
		{"one cent over is exact", "1000.01", "1000.00", collections.ClassExact, "0", "0"},
		{"two cents under is partial", "999.98", "1000.00", collections.ClassPartial, "0.02", "0"},
		{"two cents over is excess", "1000.02", "1000.00", collections.ClassExcess, "0", "0.02"},
		{"large excess", "650.00", "500.00", collections.ClassExcess, "0", "150.00"},
		{"tiny payment", "0.01", "1000.00", collections.ClassPartial, "999.99", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collections.Classify(amount(tt.tendered), amount(tt.outstanding))
			if got.Class != tt.wantClass {
				t.Fatalf("Classify(%s vs %s) = %s, want %s", tt.tendered, tt.outstanding, got.Class, tt.wantClass)
			}
			if !got.Remaining.Equal(amount(tt.wantRemain)) {
				t.Errorf("Remaining = %s, want %s", got.Remaining, tt.wantRemain)
			}
			if !got.Excess.Equal(amount(tt.wantExcess)) {
				t.Errorf("Excess = %s, want %s", got.Excess, tt.wantExcess)
			}
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	if !collections.WithinTolerance(amount("10.00"), amount("10.01")) {
		t.Error("amounts one cent apart should be within tolerance")
	}
	if collections.WithinTolerance(amount("10.00"), amount("10.02")) {
		t.Error("amounts two cents apart should not be within tolerance")
	}
}
