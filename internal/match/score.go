package match

import (
	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/joeychilson/soundify/internal/models"
)

// Rationale tags attached to scores for audit logging.
const (
	TagISRC     = "isrc"
	TagMetadata = "title+artist"
	TagDuration = "title+artist+duration-penalty"
	TagEmpty    = "empty-metadata"
)

// Scorer computes a similarity in [0, 1] between a source track and one
// candidate. It never fails; malformed or missing candidate fields degrade
// the score instead of producing errors.
type Scorer struct {
	titleWeight  float64
	artistWeight float64
	toleranceMS  int
	titleMetric  *metrics.SorensenDice
	artistMetric *metrics.JaroWinkler
}

// NewScorer builds a Scorer. titleWeight is clamped to [0.5, 1] so the title
// signal never weighs less than the artist signal; toleranceMS is the
// duration delta allowed before penalties apply.
func NewScorer(titleWeight float64, toleranceMS int) *Scorer {
	if titleWeight < 0.5 {
		titleWeight = 0.5
	}
	if titleWeight > 1 {
		titleWeight = 1
	}
	if toleranceMS <= 0 {
		toleranceMS = 3000
	}
	return &Scorer{
		titleWeight:  titleWeight,
		artistWeight: 1 - titleWeight,
		toleranceMS:  toleranceMS,
		titleMetric:  metrics.NewSorensenDice(),
		artistMetric: metrics.NewJaroWinkler(),
	}
}

// Score rates how likely cand is the same recording as src.
//
// Matching ISRCs short-circuit to 1.0. Otherwise the score is a weighted
// blend of token-set title similarity and best-pair artist similarity, scaled
// down when known durations disagree beyond the tolerance.
func (s *Scorer) Score(src models.SourceTrack, cand models.CandidateTrack) (float64, string) {
	if src.ISRC != "" && cand.ISRC != "" && src.ISRC == cand.ISRC {
		return 1.0, TagISRC
	}

	srcTitle := TokenSort(Normalize(src.Title))
	candTitle := TokenSort(Normalize(cand.Title))
	if srcTitle == "" || candTitle == "" {
		return 0, TagEmpty
	}

	titleSim := strutil.Similarity(srcTitle, candTitle, s.titleMetric)
	artistSim := s.bestArtistSimilarity(src.Artists, cand.Artists)

	score := s.titleWeight*titleSim + s.artistWeight*artistSim
	tag := TagMetadata

	if factor := s.durationFactor(src.DurationMS, cand.DurationMS); factor < 1 {
		score *= factor
		tag = TagDuration
	}

	return clamp01(score), tag
}

// bestArtistSimilarity takes the best pairwise similarity across the two
// artist lists; a remix uploader crediting the original artist second should
// not be punished for ordering.
func (s *Scorer) bestArtistSimilarity(src, cand []string) float64 {
	best := 0.0
	for _, a := range src {
		na := NormalizeArtist(a)
		if na == "" {
			continue
		}
		for _, b := range cand {
			nb := NormalizeArtist(b)
			if nb == "" {
				continue
			}
			if sim := strutil.Similarity(na, nb, s.artistMetric); sim > best {
				best = sim
			}
		}
	}
	return best
}

// durationFactor returns the multiplicative penalty for the duration delta.
// Exactly at the tolerance there is no penalty; past it the factor shrinks
// toward zero proportionally to the overrun. Unknown durations are skipped.
func (s *Scorer) durationFactor(srcMS, candMS int) float64 {
	if srcMS <= 0 || candMS <= 0 {
		return 1
	}
	delta := srcMS - candMS
	if delta < 0 {
		delta = -delta
	}
	if delta <= s.toleranceMS {
		return 1
	}
	return float64(s.toleranceMS) / float64(delta)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
