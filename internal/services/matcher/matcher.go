package matcher

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// CandidateStore is the member storage the selector reads from.
type CandidateStore interface {
	GetProfile(ctx context.Context, memberID int64) (*models.MemberProfile, error)
	FindCandidatePool(ctx context.Context, q models.PoolQuery) ([]*models.MemberProfile, error)
}

// ResultCache keeps recent selections made from stored ideal types.
//
// Keys carry a generation. Bumping it retires every cached selection at once,
// which is needed when a member changes in a way that affects other members' pools.
type ResultCache interface {
	Get(ctx context.Context, key string) (*Selection, bool, error)
	Set(ctx context.Context, key string, sel *Selection) error
	Invalidate(ctx context.Context, memberID int64) error
	Generation(ctx context.Context) (int64, error)
	BumpGeneration(ctx context.Context) error
}

// MatcherService runs the candidate selection pipeline against a store
type MatcherService struct {
	store CandidateStore
	cache ResultCache
}

// NewMatcherService creates a new matcher service. cache may be nil.
func NewMatcherService(store CandidateStore, cache ResultCache) *MatcherService {
	return &MatcherService{store: store, cache: cache}
}

// CacheKey is the cache key of a stored-ideal selection.
func CacheKey(requesterID, generation int64, opts Options) string {
	return "candidates:" + strconv.FormatInt(requesterID, 10) +
		":g" + strconv.FormatInt(generation, 10) +
		":cross=" + strconv.FormatBool(opts.CrossCheck) +
		":limit=" + strconv.Itoa(opts.Limit)
}

// SelectCandidates loads the requester, fetches its pool and ranks it.
func (m *MatcherService) SelectCandidates(ctx context.Context, requesterID int64, opts Options) (*Selection, error) {
	startTime := time.Now()

	requester, err := m.store.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requester %d: %w", requesterID, err)
	}
	if opts.Override == nil && requester.IdealType == nil {
		return nil, fmt.Errorf("member %d: %w", requesterID, models.ErrMissingIdealType)
	}

	useCache := m.cache != nil && opts.Override == nil
	var key string
	if useCache {
		gen, err := m.cache.Generation(ctx)
		if err != nil {
			utils.Logger.Warn("Candidate cache generation unavailable", zap.Error(err))
			useCache = false
		}
		key = CacheKey(requesterID, gen, opts)
	}
	if useCache {
		sel, ok, err := m.cache.Get(ctx, key)
		if err != nil {
			utils.Logger.Warn("Candidate cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			utils.Logger.Debug("Candidate cache hit", zap.Int64("requester_id", requesterID))
			return sel, nil
		}
	}

	pool, err := m.store.FindCandidatePool(ctx, models.PoolQuery{
		Requester:      &requester.Member,
		ExcludeMatched: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate pool: %w", err)
	}

	utils.Logger.Info("Starting candidate selection",
		zap.Int64("requester_id", requesterID),
		zap.Int("pool_size", len(pool)),
		zap.Bool("override", opts.Override != nil),
		zap.Bool("cross_check", opts.CrossCheck),
	)

	sel, err := Rank(requester, pool, opts)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("Candidate selection complete",
		zap.Int64("requester_id", requesterID),
		zap.Int("deal_breaker_passed", sel.Stats.DealBreakerPassed),
		zap.Int("cross_check_passed", sel.Stats.CrossCheckPassed),
		zap.Int("returned", sel.Stats.Returned),
		zap.Bool("ranked", sel.Stats.Ranked),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	if useCache {
		if err := m.cache.Set(ctx, key, sel); err != nil {
			utils.Logger.Warn("Candidate cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return sel, nil
}

// Explain evaluates a single candidate against the requester's ideal type.
func (m *MatcherService) Explain(ctx context.Context, requesterID, candidateID int64) (*Explanation, error) {
	requester, err := m.store.GetProfile(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get requester %d: %w", requesterID, err)
	}
	if requester.IdealType == nil {
		return nil, fmt.Errorf("member %d: %w", requesterID, models.ErrMissingIdealType)
	}
	candidate, err := m.store.GetProfile(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %d: %w", candidateID, err)
	}

	exp := &Explanation{
		RequesterID: requesterID,
		CandidateID: candidateID,
		DealBreaker: EvaluateDealBreakers(requester.IdealType, &candidate.Member),
		Components:  ScoreBreakdown(requester.IdealType, &candidate.Member),
		Score:       Score(requester.IdealType, &candidate.Member),
		MeetsAll:    EvaluateRequirements(&requester.IdealType.Requirements, &candidate.Member),
		Soft:        requester.IdealType.Soft,
	}
	if candidate.IdealType != nil {
		exp.Reciprocal = PassesDealBreakers(candidate.IdealType, &requester.Member)
	} else {
		exp.Reciprocal = true
	}
	return exp, nil
}

// Invalidate drops the selections requested by memberID. A new match only
// changes the pools of its own members.
func (m *MatcherService) Invalidate(ctx context.Context, memberID int64) {
	if m.cache == nil {
		return
	}
	if err := m.cache.Invalidate(ctx, memberID); err != nil {
		utils.Logger.Warn("Candidate cache invalidation failed", zap.Int64("member_id", memberID), zap.Error(err))
	}
}

// MemberChanged retires every cached selection after a profile, status,
// blacklist or ideal type change, since the member may enter or leave any
// other member's pool.
func (m *MatcherService) MemberChanged(ctx context.Context, memberID int64) {
	if m.cache == nil {
		return
	}
	if err := m.cache.BumpGeneration(ctx); err != nil {
		utils.Logger.Warn("Candidate cache generation bump failed", zap.Int64("member_id", memberID), zap.Error(err))
		m.Invalidate(ctx, memberID)
	}
}

// Explanation is an operator view of why a candidate was kept or dropped.
type Explanation struct {
	RequesterID int64                  `json:"requester_id"`
	CandidateID int64                  `json:"candidate_id"`
	DealBreaker DealBreakerResult      `json:"deal_breakers"`
	Reciprocal  bool                   `json:"reciprocal"`
	Score       int                    `json:"score"`
	Components  []ScoreComponent       `json:"components"`
	MeetsAll    bool                   `json:"meets_all_requirements"`
	Soft        models.SoftPreferences `json:"soft_preferences"`
}
