package matcher

import (
	"sort"

	"github.com/samber/lo"

	"matchmaking-engine/internal/models"
)

// Mode tells which ideal type drove a selection.
type Mode string

const (
	ModeStored   Mode = "stored"
	ModeOverride Mode = "override"
)

// Options tune a candidate selection.
type Options struct {
	// Override replaces the requester's stored ideal type, for operator searches.
	Override *models.IdealType `json:"override,omitempty"`
	// CrossCheck also drops candidates whose own deal-breakers reject the requester.
	CrossCheck bool `json:"cross_check"`
	Limit      int  `json:"limit,omitempty"`
}

// Candidate is one ranked entry of a selection.
type Candidate struct {
	Profile *models.MemberProfile `json:"profile"`
	Score   int                   `json:"score"`
}

// SelectionStats counts what survived each stage.
type SelectionStats struct {
	PoolSize          int  `json:"pool_size"`
	DealBreakerPassed int  `json:"deal_breaker_passed"`
	CrossCheckPassed  int  `json:"cross_check_passed"`
	Returned          int  `json:"returned"`
	Ranked            bool `json:"ranked"`
}

// Selection is the ordered candidate list for one requester.
type Selection struct {
	RequesterID int64          `json:"requester_id"`
	Mode        Mode           `json:"mode"`
	Candidates  []Candidate    `json:"candidates"`
	Stats       SelectionStats `json:"stats"`
}

// CandidateIDs returns the member ids in ranked order.
func (s *Selection) CandidateIDs() []int64 {
	return lo.Map(s.Candidates, func(c Candidate, _ int) int64 { return c.Profile.ID })
}

// Rank filters and orders a candidate pool for requester.
//
// Candidates must pass the deal-breakers of the effective ideal type: the
// override when given, the stored one otherwise. With CrossCheck, each
// candidate's own deal-breakers are applied to the requester; a candidate
// without an ideal type accepts everyone. When any soft tier is assigned the
// result is sorted by score; ties and unranked lists keep the newest first.
func Rank(requester *models.MemberProfile, pool []*models.MemberProfile, opts Options) (*Selection, error) {
	ideal, mode := requester.IdealType, ModeStored
	if opts.Override != nil {
		ideal, mode = opts.Override, ModeOverride
	}
	if ideal == nil {
		return nil, models.ErrMissingIdealType
	}

	sel := &Selection{RequesterID: requester.ID, Mode: mode}
	sel.Stats.PoolSize = len(pool)

	ordered := make([]*models.MemberProfile, len(pool))
	copy(ordered, pool)
	sort.SliceStable(ordered, func(i, j int) bool {
		return newerFirst(&ordered[i].Member, &ordered[j].Member)
	})

	// Stage 1: deal-breakers
	passed := lo.Filter(ordered, func(p *models.MemberProfile, _ int) bool {
		return p.ID != requester.ID && PassesDealBreakers(ideal, &p.Member)
	})
	sel.Stats.DealBreakerPassed = len(passed)

	// Stage 2: reciprocity
	if opts.CrossCheck {
		passed = lo.Filter(passed, func(p *models.MemberProfile, _ int) bool {
			return p.IdealType == nil || PassesDealBreakers(p.IdealType, &requester.Member)
		})
	}
	sel.Stats.CrossCheckPassed = len(passed)

	// Stage 3: ranking
	candidates := lo.Map(passed, func(p *models.MemberProfile, _ int) Candidate {
		return Candidate{Profile: p, Score: Score(ideal, &p.Member)}
	})
	if ideal.Priorities.HasSoftTiers() {
		sel.Stats.Ranked = true
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Score > candidates[j].Score
		})
	}

	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}
	sel.Candidates = candidates
	sel.Stats.Returned = len(candidates)
	return sel, nil
}

func newerFirst(a, b *models.Member) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
