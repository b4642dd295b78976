// Package turning holds the turning-point catalog: immutable reference
// data describing relationship-development scenarios, queried during
// scene progression to pick an eligible scenario for the next scene.
package turning

import (
	"fmt"
	"math/rand"
	"strings"
)

// SampleLimit caps category query results. Keeping the option list
// short keeps prompts short while preserving variety.
const SampleLimit = 10

// Point is one catalog entry. Immutable after load.
type Point struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Category            string     `json:"category"`
	UncertaintyTypes    []string   `json:"uncertainty_types"`
	CommitmentRange     [2]float64 `json:"commitment_range"`
	Repeatable          bool       `json:"repeatable"`
	MinScenesSinceStart int        `json:"min_scenes_since_start"`
	Notes               string     `json:"notes,omitempty"`
}

// Validate checks the lo <= hi invariant.
func (p Point) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("turning point missing id")
	}
	if p.CommitmentRange[0] > p.CommitmentRange[1] {
		return fmt.Errorf("turning point %s: commitment range [%g,%g] inverted", p.ID, p.CommitmentRange[0], p.CommitmentRange[1])
	}
	return nil
}

// FitsCommitment reports whether score falls inside the point's
// commitment range, boundaries inclusive.
func (p Point) FitsCommitment(score float64) bool {
	return p.CommitmentRange[0] <= score && score <= p.CommitmentRange[1]
}

func (p Point) String() string {
	return fmt.Sprintf("%s (%s): %s", p.Name, p.Category, p.Notes)
}

// Trend labels the direction of the relationship's commitment signal.
type Trend string

const (
	TrendImproving     Trend = "improving"
	TrendDeteriorating Trend = "deteriorating"
)

// MatchMode selects how category filters compare.
type MatchMode string

const (
	MatchExact    MatchMode = "exact"
	MatchContains MatchMode = "contains"
	MatchPrefix   MatchMode = "prefix"
)

// Query filters the catalog. Zero-valued fields are skipped.
type Query struct {
	Category         string
	Uncertainty      string
	Commitment       *float64
	Trend            Trend
	Repeatable       *bool
	ScenesSinceStart *int
}

// Catalog is a loaded-once turning-point list plus the fixed ordering
// sequence that maps a progression index to its eligible point IDs.
type Catalog struct {
	points   []Point
	byID     map[string]Point
	sequence [][]string
}

// NewCatalog validates the points and sequence and builds the indexes.
// Every sequence entry must name a known point.
func NewCatalog(points []Point, sequence [][]string) (*Catalog, error) {
	byID := make(map[string]Point, len(points))
	for _, p := range points {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate turning point id %s", p.ID)
		}
		byID[p.ID] = p
	}
	for step, ids := range sequence {
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return nil, fmt.Errorf("sequence step %d references unknown turning point %s", step, id)
			}
		}
	}
	return &Catalog{points: points, byID: byID, sequence: sequence}, nil
}

// Len reports the number of points in the catalog.
func (c *Catalog) Len() int {
	return len(c.points)
}

// TotalScenes reports the length of the ordering sequence.
func (c *Catalog) TotalScenes() int {
	return len(c.sequence)
}

// ByID looks up a point.
func (c *Catalog) ByID(id string) (Point, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// EligibleAt returns the points named by the sequence at a progression
// index, in sequence order. An out-of-range index returns nil.
func (c *Catalog) EligibleAt(progression int) []Point {
	if progression < 0 || progression >= len(c.sequence) {
		return nil
	}
	ids := c.sequence[progression]
	out := make([]Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.byID[id])
	}
	return out
}

// Select filters the full catalog. Pure function over the loaded data;
// no I/O, no randomness.
func (c *Catalog) Select(q Query) []Point {
	var out []Point
	for _, p := range c.points {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if q.Uncertainty != "" && !contains(p.UncertaintyTypes, q.Uncertainty) {
			continue
		}
		if q.Repeatable != nil && p.Repeatable != *q.Repeatable {
			continue
		}
		if q.Commitment != nil && !p.FitsCommitment(*q.Commitment) {
			continue
		}
		if q.ScenesSinceStart != nil && *q.ScenesSinceStart < p.MinScenesSinceStart {
			continue
		}
		if q.Trend == TrendImproving && p.Category == "Transitions & Endings" {
			continue
		}
		if q.Trend == TrendDeteriorating && (p.Category == "Bonding" || p.Category == "Deepening") {
			continue
		}
		out = append(out, p)
	}
	return out
}

func contains(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

// FindByCategory returns the points whose category matches any of the
// targets under the given match mode. More than SampleLimit matches are
// reduced to a uniform random sample drawn from rng; the rng is
// injectable so callers can pin the sample in tests.
func FindByCategory(points []Point, categories []string, mode MatchMode, ignoreCase bool, rng *rand.Rand) []Point {
	targets := make([]string, len(categories))
	for i, t := range categories {
		if ignoreCase {
			t = strings.ToLower(t)
		}
		targets[i] = t
	}

	var matched []Point
	for _, p := range points {
		cat := p.Category
		if ignoreCase {
			cat = strings.ToLower(cat)
		}
		for _, t := range targets {
			ok := false
			switch mode {
			case MatchContains:
				ok = strings.Contains(cat, t)
			case MatchPrefix:
				ok = strings.HasPrefix(cat, t)
			default:
				ok = cat == t
			}
			if ok {
				matched = append(matched, p)
				break
			}
		}
	}

	if len(matched) <= SampleLimit {
		return matched
	}
	sampled := make([]Point, len(matched))
	copy(sampled, matched)
	rng.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})
	return sampled[:SampleLimit]
}
