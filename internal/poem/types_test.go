package poem

import "testing"

func TestGenerateIDPrefix(t *testing.T) {
	id := GenerateID("exec")
	if len(id) < len("exec-") || id[:5] != "exec-" {
		t.Fatalf("expected id to start with %q, got %q", "exec-", id)
	}
}

func TestConstraintCloneIndependence(t *testing.T) {
	c := Constraint{Keywords: []string{"a", "b"}}
	cp := c.Clone()
	cp.Keywords[0] = "changed"
	if c.Keywords[0] != "a" {
		t.Fatalf("Clone shared backing array with original: %v", c.Keywords)
	}
}

func TestConstraintTotalHemistichs(t *testing.T) {
	c := Constraint{LineCount: 4}
	if got := c.TotalHemistichs(); got != 8 {
		t.Fatalf("TotalHemistichs() = %d, want 8", got)
	}
}

func TestPoemBaitsAndBait(t *testing.T) {
	p := Poem{Verses: []string{"o1", "c1", "o2", "c2"}}
	if got := p.Baits(); got != 2 {
		t.Fatalf("Baits() = %d, want 2", got)
	}
	opening, closing, ok := p.Bait(2)
	if !ok || opening != "o2" || closing != "c2" {
		t.Fatalf("Bait(2) = (%q, %q, %v), want (o2, c2, true)", opening, closing, ok)
	}
	if _, _, ok := p.Bait(3); ok {
		t.Fatalf("Bait(3) should be out of range")
	}
	if _, _, ok := p.Bait(0); ok {
		t.Fatalf("Bait(0) should be invalid (1-based indexing)")
	}
}

func TestDimensionResultValidRatio(t *testing.T) {
	cases := []struct {
		name string
		d    DimensionResult
		want float64
	}{
		{"no per-bait, valid", DimensionResult{IsValid: true}, 1},
		{"no per-bait, invalid", DimensionResult{IsValid: false}, 0},
		{"per-bait mixed", DimensionResult{PerBaitResults: []bool{true, false, true, true}}, 0.75},
		{"per-bait all false", DimensionResult{PerBaitResults: []bool{false, false}}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.d.ValidRatio(); got != tc.want {
				t.Fatalf("ValidRatio() = %v, want %v", got, tc.want)
			}
		})
	}
}
