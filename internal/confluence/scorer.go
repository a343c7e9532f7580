package confluence

import (
	"fmt"
	"sort"
	"time"

	"signal-scanner/internal/patterns"
)

// Group bundles every pattern match anchored to the same candle of the
// same symbol. Members are ordered by confidence, strongest first; the
// strongest is the primary.
type Group struct {
	Symbol             string
	TimestampUTC       time.Time
	Primary            patterns.Match
	Members            []patterns.Match
	CombinedConfidence float64
}

// IsConfluence reports whether independent detectors agreed on this
// candle.
func (g Group) IsConfluence() bool {
	return len(g.Members) >= 2
}

// Kinds lists the member pattern kinds in confidence order.
func (g Group) Kinds() []patterns.Kind {
	out := make([]patterns.Kind, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Kind
	}
	return out
}

// Grouper clusters matches by anchor candle and scores the agreement.
type Grouper struct {
	boostPerMember float64 // confidence added per extra member
	maxConfidence  float64
}

// NewGrouper creates a grouper with the default boost.
func NewGrouper() *Grouper {
	return &Grouper{
		boostPerMember: 8.0,
		maxConfidence:  100,
	}
}

// SetBoost adjusts the per-member confidence boost.
func (g *Grouper) SetBoost(boost float64) error {
	if boost < 0 {
		return fmt.Errorf("boost must not be negative, got %.2f", boost)
	}
	g.boostPerMember = boost
	return nil
}

// Group sorts matches once and partitions consecutive runs sharing a
// symbol and anchor timestamp. Within a run members rank by confidence,
// strongest first; equal-confidence members keep their input order.
// Combined confidence is the primary's plus the boost per extra member,
// capped. Groups come back in chronological order.
func (g *Grouper) Group(matches []patterns.Match) []Group {
	if len(matches) == 0 {
		return nil
	}

	sorted := make([]patterns.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		if !sorted[i].TimestampUTC.Equal(sorted[j].TimestampUTC) {
			return sorted[i].TimestampUTC.Before(sorted[j].TimestampUTC)
		}
		return sorted[i].Confidence > sorted[j].Confidence
	})

	var groups []Group
	for start := 0; start < len(sorted); {
		end := start + 1
		for end < len(sorted) &&
			sorted[end].Symbol == sorted[start].Symbol &&
			sorted[end].TimestampUTC.Equal(sorted[start].TimestampUTC) {
			end++
		}

		members := make([]patterns.Match, end-start)
		copy(members, sorted[start:end])
		primary := members[0]

		combined := primary.Confidence + g.boostPerMember*float64(len(members)-1)
		if combined > g.maxConfidence {
			combined = g.maxConfidence
		}

		groups = append(groups, Group{
			Symbol:             primary.Symbol,
			TimestampUTC:       primary.TimestampUTC,
			Primary:            primary,
			Members:            members,
			CombinedConfidence: combined,
		})
		start = end
	}
	return groups
}
