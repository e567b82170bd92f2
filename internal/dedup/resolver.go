// Package dedup groups near-identical listings across sites via weighted
// multi-signal similarity and elects one survivor per group.
package dedup

import (
	"math"

	"github.com/rs/zerolog/log"

	"github.com/property-radar/crawl/pkg/models"
)

// Pair score weights. Title text dominates, location supports, and exact
// bedroom/price agreement tops it up; coordinates add a bonus on top.
const (
	weightTitle    = 0.40
	weightLocation = 0.30
	weightBedrooms = 0.20
	weightPrice    = 0.10
	coordBonus     = 0.20

	priceTolerance   = 0.10
	coordCloseMeters = 50.0

	// DefaultThreshold is the score at which a pair counts as a duplicate
	DefaultThreshold = 0.85
)

// Group is one set of listings judged the same real property. Indices refer
// to the resolver's input slice; Survivor is the index kept by the policy.
type Group struct {
	Indices  []int
	Survivor int
}

// Resolver deduplicates a result set
type Resolver struct {
	threshold float64
	policy    SurvivorPolicy
}

// New creates a resolver. threshold <= 0 selects the default; policy nil
// selects first-seen.
func New(threshold float64, policy SurvivorPolicy) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if policy == nil {
		policy = FirstSeen
	}
	return &Resolver{threshold: threshold, policy: policy}
}

// Score computes the pairwise similarity of two listings in [0,1]
func Score(a, b *models.Listing) float64 {
	score := weightTitle * TextSimilarity(a.Title, b.Title)
	score += weightLocation * TextSimilarity(a.Location, b.Location)

	if a.Bedrooms > 0 && a.Bedrooms == b.Bedrooms {
		score += weightBedrooms
	}
	if priceWithinTolerance(a.Price, b.Price) {
		score += weightPrice
	}
	if a.HasCoords && b.HasCoords {
		if HaversineMeters(a.Latitude, a.Longitude, b.Latitude, b.Longitude) <= coordCloseMeters {
			score += coordBonus
		}
	}

	return math.Min(score, 1.0)
}

// Resolve returns the surviving listings plus the groups that were found.
// Grouping is transitive: if A matches B and B matches C, all three share a
// group even when A and C score below threshold. Listings outside any group
// pass through untouched.
func (r *Resolver) Resolve(listings []models.Listing) ([]models.Listing, []Group) {
	n := len(listings)
	if n < 2 {
		return listings, nil
	}

	adj := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if Score(&listings[i], &listings[j]) >= r.threshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	visited := make([]bool, n)
	var groups []Group
	inGroup := make([]bool, n)

	for i := 0; i < n; i++ {
		if visited[i] || len(adj[i]) == 0 {
			visited[i] = true
			continue
		}
		component := dfs(i, adj, visited)
		if len(component) < 2 {
			continue
		}
		g := Group{Indices: component}
		g.Survivor = r.policy(listings, component)
		for _, idx := range component {
			inGroup[idx] = true
		}
		groups = append(groups, g)

		log.Debug().
			Int("size", len(component)).
			Str("survivor", listings[g.Survivor].Hash).
			Msg("Duplicate group resolved")
	}

	survivorSet := make(map[int]bool, len(groups))
	for _, g := range groups {
		survivorSet[g.Survivor] = true
	}

	out := make([]models.Listing, 0, n)
	for i := range listings {
		if !inGroup[i] || survivorSet[i] {
			out = append(out, listings[i])
		}
	}

	if len(groups) > 0 {
		log.Info().
			Int("input", n).
			Int("output", len(out)).
			Int("groups", len(groups)).
			Msg("Duplicate resolution completed")
	}

	return out, groups
}

// dfs collects the connected component containing start, in index order
func dfs(start int, adj [][]int, visited []bool) []int {
	stack := []int{start}
	var component []int
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[node] {
			continue
		}
		visited[node] = true
		component = append(component, node)
		for _, next := range adj[node] {
			if !visited[next] {
				stack = append(stack, next)
			}
		}
	}
	// Stack order is arbitrary; policies expect input order
	for i := 1; i < len(component); i++ {
		for j := i; j > 0 && component[j] < component[j-1]; j-- {
			component[j], component[j-1] = component[j-1], component[j]
		}
	}
	return component
}

func priceWithinTolerance(a, b float64) bool {
	if a <= 0 || b <= 0 {
		return false
	}
	hi := math.Max(a, b)
	return math.Abs(a-b)/hi <= priceTolerance
}
