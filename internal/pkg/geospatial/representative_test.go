package geospatial

import (
	"encoding/json"
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRepresentative(t *testing.T) {
	tests := []struct {
		name   string
		coords string
		want   [2]float64
	}{
		{"empty", ``, [2]float64{0, 0}},
		{"empty array", `[]`, [2]float64{0, 0}},
		{"point", `[-73.5, 42.1]`, [2]float64{-73.5, 42.1}},
		{"line", `[[0, 0], [0.2, 0.2], [0.4, 0.4]]`, [2]float64{0.2, 0.2}},
		{"polygon ring", `[[[10, 20], [10.2, 20], [10.2, 20.2], [10, 20.2], [10, 20]]]`, [2]float64{10.08, 20.08}},
		{"multipolygon uses first ring", `[[[[1, 1], [1, 1.2], [1.2, 1.2]]], [[[50, 50], [51, 51], [52, 52]]]]`, [2]float64{1.0666666666666667, 1.1333333333333333}},
		{"drops outliers", `[[0, 0], [0.1, 0.1], [0.2, 0.2], [40, 40]]`, [2]float64{0.1, 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Representative(json.RawMessage(tt.coords))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !almostEqual(got[0], tt.want[0]) || !almostEqual(got[1], tt.want[1]) {
				t.Errorf("Representative(%s) = %v, want %v", tt.coords, got, tt.want)
			}
		})
	}
}

func TestRepresentative_NumericSort(t *testing.T) {
	got, err := Representative(json.RawMessage(`[[-9.7, 5], [-10, 5], [100, 5], [-9.8, 5], [-9.9, 5]]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !almostEqual(got[0], -9.85) {
		t.Errorf("expected mean of cluster around -9.8, got %v", got[0])
	}
	if !almostEqual(got[1], 5) {
		t.Errorf("expected lat 5, got %v", got[1])
	}
}

func TestRepresentative_InvalidJSON(t *testing.T) {
	if _, err := Representative(json.RawMessage(`{"a":1}`)); err == nil {
		t.Error("expected error for non-array coordinates")
	}
}

func TestRound(t *testing.T) {
	if got := Round(12.3456, 2); got != 12.35 {
		t.Errorf("expected 12.35, got %v", got)
	}
	if got := Round(-0.004, 2); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}
