package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

// Audit reasons recorded on match results.
const (
	ReasonEmptyTitle     = "empty-title"
	ReasonNoCandidates   = "no-candidates"
	ReasonBelowFloor     = "below-floor"
	ReasonISRC           = "isrc"
	ReasonScoreMargin    = "score-margin"
	ReasonAISelected     = "ai-selected"
	ReasonAINone         = "ai-none"
	ReasonAIUnavailable  = "ai-unavailable"
	ReasonScorerFallback = "scorer-fallback"
	ReasonProviderError  = "provider-error"
)

// CandidateProvider supplies destination-catalog candidates for one source
// track, ordered by the provider's own relevance ranking. The ranking is a
// tie-break hint only. May fail transiently or return an empty slice (no
// candidates is not an error).
type CandidateProvider interface {
	FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error)
}

// Judge breaks ties the numeric scorer cannot resolve. Pick returns the ID
// of the candidate judged to be the same recording, or "" for an explicit
// "none of these" verdict. Errors cover provider failures and unparseable
// responses alike.
type Judge interface {
	Pick(ctx context.Context, track models.SourceTrack, candidates []models.CandidateTrack) (string, error)
}

// Thresholds are the tunable decision boundaries of the resolver. The zero
// value is not usable; use [DefaultThresholds] or load from configuration.
type Thresholds struct {
	High            float64 // accept deterministically at or above this
	Floor           float64 // reject below this
	Margin          float64 // minimum top-two gap for a deterministic accept
	AIFallbackFloor float64 // scorer-only acceptance floor when the judge is unavailable
	TopK            int     // candidates forwarded to the judge
}

// DefaultThresholds returns the illustrative calibration the engine ships
// with. Tune per deployment via the [matcher] config section.
func DefaultThresholds() Thresholds {
	return Thresholds{High: 0.92, Floor: 0.55, Margin: 0.05, AIFallbackFloor: 0.75, TopK: 3}
}

// ScoredCandidate pairs a candidate with its similarity score.
type ScoredCandidate struct {
	Candidate models.CandidateTrack
	Score     float64
	Tag       string
}

// Resolver decides the MatchResult for one source track: normalize, fetch
// candidates, score, and either accept deterministically or delegate near
// ties to the Judge.
type Resolver struct {
	scorer     *Scorer
	provider   CandidateProvider
	judge      Judge // nil disables AI tie-breaking entirely
	thresholds Thresholds
	candidates int
	logger     *log.Logger
}

// NewResolver wires a Resolver. judge may be nil; the resolver then applies
// the conservative scorer-only fallback for ambiguous tracks.
func NewResolver(provider CandidateProvider, judge Judge, scorer *Scorer, t Thresholds, searchCandidates int, logger *log.Logger) *Resolver {
	if t.TopK <= 0 {
		t.TopK = DefaultThresholds().TopK
	}
	if searchCandidates <= 0 {
		searchCandidates = 5
	}
	return &Resolver{
		scorer:     scorer,
		provider:   provider,
		judge:      judge,
		thresholds: t,
		candidates: searchCandidates,
		logger:     logger,
	}
}

// Resolve produces the single MatchResult for src. The returned error is
// non-nil only for candidate-provider failures, which the caller may retry;
// every other condition degrades to a terminal MatchResult.
func (r *Resolver) Resolve(ctx context.Context, src models.SourceTrack) (models.MatchResult, error) {
	result := models.MatchResult{
		SourceTrackID: src.ID,
		SourceTitle:   src.Title,
		SourceArtist:  src.Artist(),
		Tier:          models.TierNone,
	}

	if Normalize(src.Title) == "" {
		result.Reason = ReasonEmptyTitle
		return result, nil
	}

	candidates, err := r.provider.FetchCandidates(ctx, src, r.candidates)
	if err != nil {
		return result, err
	}
	if len(candidates) == 0 {
		result.Reason = ReasonNoCandidates
		return result, nil
	}

	scored := r.scoreAll(src, candidates)

	// An ISRC hit wins outright even when a metadata-only candidate ties it
	// at 1.0 and sorts first.
	for _, sc := range scored {
		if sc.Tag == TagISRC {
			result.CandidateID = sc.Candidate.ID
			result.Tier = models.TierExact
			result.Score = sc.Score
			result.Reason = ReasonISRC
			return result, nil
		}
	}

	top := scored[0]
	result.Score = top.Score

	if top.Score < r.thresholds.Floor {
		result.Reason = ReasonBelowFloor
		return result, nil
	}

	gap := top.Score
	if len(scored) > 1 {
		gap = top.Score - scored[1].Score
	}
	if top.Score >= r.thresholds.High && gap >= r.thresholds.Margin {
		result.CandidateID = top.Candidate.ID
		result.Tier = models.TierHigh
		result.Reason = ReasonScoreMargin
		return result, nil
	}

	// Ambiguous middle zone, or top two too close to call.
	return r.resolveAmbiguous(ctx, src, scored, result), nil
}

// scoreAll scores every candidate and sorts descending; the sort is stable
// so the provider's relevance order survives exact score ties.
func (r *Resolver) scoreAll(src models.SourceTrack, candidates []models.CandidateTrack) []ScoredCandidate {
	scored := make([]ScoredCandidate, len(candidates))
	for i, cand := range candidates {
		score, tag := r.scorer.Score(src, cand)
		scored[i] = ScoredCandidate{Candidate: cand, Score: score, Tag: tag}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	return scored
}

// resolveAmbiguous delegates a near tie to the judge, falling back to the
// conservative scorer-only rule when the judge is missing, failing, or
// answering outside its closed contract. Either path caps the confidence at
// [models.TierAIResolved].
func (r *Resolver) resolveAmbiguous(ctx context.Context, src models.SourceTrack, scored []ScoredCandidate, result models.MatchResult) models.MatchResult {
	topK := scored
	if len(topK) > r.thresholds.TopK {
		topK = topK[:r.thresholds.TopK]
	}

	if r.judge != nil {
		shortlist := make([]models.CandidateTrack, len(topK))
		for i, sc := range topK {
			shortlist[i] = sc.Candidate
		}

		pick, err := r.judge.Pick(ctx, src, shortlist)
		if err == nil {
			if pick == "" {
				result.Reason = ReasonAINone
				return result
			}
			for _, sc := range topK {
				if sc.Candidate.ID == pick {
					result.CandidateID = pick
					result.Tier = models.TierAIResolved
					result.Score = sc.Score
					result.Reason = ReasonAISelected
					return result
				}
			}
			// Verdict names a track outside the shortlist; treat it like a
			// judge failure.
			err = fmt.Errorf("%w: candidate %q not in shortlist", shared.ErrBadVerdict, pick)
		}
		if r.logger != nil {
			r.logger.Warn("ambiguity judge unavailable, using scorer fallback",
				"track", src.ID, "err", err)
		}
	}

	if scored[0].Score >= r.thresholds.AIFallbackFloor {
		result.CandidateID = scored[0].Candidate.ID
		result.Tier = models.TierAIResolved
		result.Reason = ReasonScorerFallback
		return result
	}

	result.Reason = ReasonAIUnavailable
	return result
}
