package turning

import (
	"fmt"
	"math/rand"
	"testing"
)

func point(id, category string, lo, hi float64) Point {
	return Point{
		ID:              id,
		Name:            "Point " + id,
		Category:        category,
		CommitmentRange: [2]float64{lo, hi},
	}
}

func TestFitsCommitment(t *testing.T) {
	p := point("tp1", "Bonding", 30, 60)
	tests := []struct {
		score float64
		want  bool
	}{
		{45, true},
		{30, true}, // lower boundary inclusive
		{60, true}, // upper boundary inclusive
		{29, false},
		{61, false},
	}
	for _, tt := range tests {
		if got := p.FitsCommitment(tt.score); got != tt.want {
			t.Errorf("FitsCommitment(%g) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestPointValidate(t *testing.T) {
	if err := point("ok", "Bonding", 10, 20).Validate(); err != nil {
		t.Errorf("valid point rejected: %v", err)
	}
	if err := point("bad", "Bonding", 20, 10).Validate(); err == nil {
		t.Error("inverted range accepted")
	}
	if err := (Point{}).Validate(); err == nil {
		t.Error("missing id accepted")
	}
}

func TestNewCatalog_RejectsUnknownSequenceID(t *testing.T) {
	_, err := NewCatalog([]Point{point("a", "Bonding", 0, 100)}, [][]string{{"a"}, {"missing"}})
	if err == nil {
		t.Fatal("expected error for unknown sequence id")
	}
}

func TestCatalogEligibleAt(t *testing.T) {
	c, err := NewCatalog(
		[]Point{point("a", "Bonding", 0, 100), point("b", "Conflict", 0, 100)},
		[][]string{{"a"}, {"a", "b"}},
	)
	if err != nil {
		t.Fatal(err)
	}
	if c.TotalScenes() != 2 {
		t.Errorf("TotalScenes = %d, want 2", c.TotalScenes())
	}
	if got := c.EligibleAt(1); len(got) != 2 || got[1].ID != "b" {
		t.Errorf("EligibleAt(1) = %+v", got)
	}
	if got := c.EligibleAt(2); got != nil {
		t.Errorf("out-of-range EligibleAt should be nil, got %+v", got)
	}
	if got := c.EligibleAt(-1); got != nil {
		t.Errorf("negative EligibleAt should be nil, got %+v", got)
	}
}

func TestCatalogSelect(t *testing.T) {
	commitment := func(v float64) *float64 { return &v }
	scenes := func(v int) *int { return &v }
	repeatable := func(v bool) *bool { return &v }

	pts := []Point{
		{ID: "bond", Category: "Bonding", CommitmentRange: [2]float64{40, 80}, Repeatable: true},
		{ID: "end", Category: "Transitions & Endings", CommitmentRange: [2]float64{0, 30}},
		{ID: "deep", Category: "Deepening", CommitmentRange: [2]float64{50, 100}, MinScenesSinceStart: 3,
			UncertaintyTypes: []string{"future"}},
	}
	c, err := NewCatalog(pts, nil)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{"no filters", Query{}, []string{"bond", "end", "deep"}},
		{"category", Query{Category: "Bonding"}, []string{"bond"}},
		{"commitment", Query{Commitment: commitment(60)}, []string{"bond", "deep"}},
		{"improving trend excludes endings", Query{Trend: TrendImproving}, []string{"bond", "deep"}},
		{"deteriorating trend excludes bonding and deepening", Query{Trend: TrendDeteriorating}, []string{"end"}},
		{"min scenes gate", Query{ScenesSinceStart: scenes(1)}, []string{"bond", "end"}},
		{"uncertainty", Query{Uncertainty: "future"}, []string{"deep"}},
		{"repeatable only", Query{Repeatable: repeatable(true)}, []string{"bond"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Select(tt.q)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d results, want %d: %+v", len(got), len(tt.want), got)
			}
			for i, id := range tt.want {
				if got[i].ID != id {
					t.Errorf("result[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFindByCategory_MatchModes(t *testing.T) {
	pts := []Point{
		point("a", "Bonding", 0, 100),
		point("b", "Bonding & Trust", 0, 100),
		point("c", "Conflict", 0, 100),
	}
	rng := rand.New(rand.NewSource(1))

	got := FindByCategory(pts, []string{"bonding"}, MatchExact, true, rng)
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("exact match = %+v", got)
	}
	got = FindByCategory(pts, []string{"bonding"}, MatchPrefix, true, rng)
	if len(got) != 2 {
		t.Errorf("prefix match returned %d, want 2", len(got))
	}
	got = FindByCategory(pts, []string{"trust"}, MatchContains, true, rng)
	if len(got) != 1 || got[0].ID != "b" {
		t.Errorf("contains match = %+v", got)
	}
	got = FindByCategory(pts, []string{"Bonding"}, MatchExact, false, rng)
	if len(got) != 1 {
		t.Errorf("case-sensitive match returned %d, want 1", len(got))
	}
	got = FindByCategory(pts, []string{"bonding"}, MatchExact, false, rng)
	if len(got) != 0 {
		t.Errorf("case-sensitive lowercase target should not match, got %+v", got)
	}
}

func TestFindByCategory_SampleBound(t *testing.T) {
	var pts []Point
	members := make(map[string]bool)
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("tp%02d", i)
		pts = append(pts, point(id, "Bonding", 0, 100))
		members[id] = true
	}
	rng := rand.New(rand.NewSource(42))

	got := FindByCategory(pts, []string{"Bonding"}, MatchExact, true, rng)
	if len(got) != SampleLimit {
		t.Fatalf("sample size = %d, want %d", len(got), SampleLimit)
	}
	seen := make(map[string]bool)
	for _, p := range got {
		if !members[p.ID] {
			t.Errorf("sampled %s is not a catalog match", p.ID)
		}
		if seen[p.ID] {
			t.Errorf("sampled %s twice", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestFindByCategory_UnderLimitReturnsAll(t *testing.T) {
	pts := []Point{point("a", "Bonding", 0, 100), point("b", "Bonding", 0, 100)}
	got := FindByCategory(pts, []string{"Bonding"}, MatchExact, true, rand.New(rand.NewSource(7)))
	if len(got) != 2 {
		t.Errorf("got %d, want all 2", len(got))
	}
}
