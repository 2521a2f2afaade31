package match

import (
	"testing"

	"github.com/joeychilson/soundify/internal/models"
)

func src(title, artist string, durationMS int) models.SourceTrack {
	return models.SourceTrack{ID: "sc-1", Title: title, Artists: []string{artist}, DurationMS: durationMS}
}

func cand(title, artist string, durationMS int) models.CandidateTrack {
	return models.CandidateTrack{ID: "sp-1", Title: title, Artists: []string{artist}, DurationMS: durationMS}
}

func TestScoreISRCShortCircuit(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	source := src("Completely Different", "Nobody", 100000)
	source.ISRC = "USUM71703861"
	candidate := cand("Another Name", "Someone Else", 500000)
	candidate.ISRC = "USUM71703861"

	score, tag := scorer.Score(source, candidate)
	if score != 1.0 || tag != TagISRC {
		t.Errorf("Score() = (%f, %s), want (1.0, %s)", score, tag, TagISRC)
	}
}

func TestScoreISRCMismatchFallsThrough(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	source := src("Strobe", "deadmau5", 0)
	source.ISRC = "AAAA00000001"
	candidate := cand("Strobe", "deadmau5", 0)
	candidate.ISRC = "BBBB00000002"

	score, tag := scorer.Score(source, candidate)
	if tag == TagISRC {
		t.Errorf("mismatched ISRCs short-circuited")
	}
	if score < 0.99 {
		t.Errorf("identical metadata scored %f", score)
	}
}

func TestScoreNoiseVariants(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	// Same recording with different packaging must land near the top.
	score, _ := scorer.Score(
		src("Song (Live)", "The Band", 0),
		cand("song live", "The Band", 0),
	)
	if score < 0.95 {
		t.Errorf("noise variant scored %f, want >= 0.95", score)
	}

	// Token order must not matter.
	ordered, _ := scorer.Score(src("Midnight City", "M83", 0), cand("Midnight City", "M83", 0))
	swapped, _ := scorer.Score(src("City Midnight", "M83", 0), cand("Midnight City", "M83", 0))
	if ordered != swapped {
		t.Errorf("token order changed score: %f vs %f", ordered, swapped)
	}
}

func TestScoreMonotonicity(t *testing.T) {
	scorer := NewScorer(0.6, 3000)
	source := src("Midnight City", "M83", 0)

	exact, _ := scorer.Score(source, cand("Midnight City", "M83", 0))
	close1, _ := scorer.Score(source, cand("Midnight City", "M38", 0))
	far, _ := scorer.Score(source, cand("Completely Unrelated Song", "Someone", 0))

	if !(exact > close1) {
		t.Errorf("exact (%f) not above near miss (%f)", exact, close1)
	}
	if !(close1 > far) {
		t.Errorf("near miss (%f) not above unrelated (%f)", close1, far)
	}
}

func TestScoreDurationPenalty(t *testing.T) {
	scorer := NewScorer(0.6, 3000)
	source := src("Strobe", "deadmau5", 600000)

	within, tagWithin := scorer.Score(source, cand("Strobe", "deadmau5", 602000))
	atBoundary, tagBoundary := scorer.Score(source, cand("Strobe", "deadmau5", 603000))
	beyond, tagBeyond := scorer.Score(source, cand("Strobe", "deadmau5", 612000))

	if tagWithin == TagDuration || tagBoundary == TagDuration {
		t.Errorf("penalty applied inside tolerance: %s / %s", tagWithin, tagBoundary)
	}
	if within != atBoundary {
		t.Errorf("scores differ inside tolerance: %f vs %f", within, atBoundary)
	}
	if tagBeyond != TagDuration {
		t.Errorf("no penalty tag past tolerance: %s", tagBeyond)
	}
	if !(beyond < atBoundary) {
		t.Errorf("delta past tolerance did not reduce score: %f vs %f", beyond, atBoundary)
	}
	// 12s delta against a 3s tolerance quarters the score.
	if want := atBoundary * 0.25; beyond < want-1e-9 || beyond > want+1e-9 {
		t.Errorf("penalty factor = %f, want %f", beyond, want)
	}
}

func TestScoreUnknownDurationSkipsPenalty(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	score, tag := scorer.Score(src("Strobe", "deadmau5", 0), cand("Strobe", "deadmau5", 600000))
	if tag == TagDuration {
		t.Errorf("penalty applied with unknown source duration")
	}
	if score < 0.99 {
		t.Errorf("identical metadata scored %f", score)
	}
}

func TestScoreEmptyMetadata(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	score, tag := scorer.Score(src("(Original Mix)", "Artist", 0), cand("Strobe", "Artist", 0))
	if score != 0 || tag != TagEmpty {
		t.Errorf("Score() = (%f, %s), want (0, %s)", score, tag, TagEmpty)
	}
}

func TestScoreMultipleArtistsBestPair(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	source := models.SourceTrack{Title: "Latch", Artists: []string{"Uploader Account", "Disclosure"}}
	candidate := models.CandidateTrack{ID: "sp-1", Title: "Latch", Artists: []string{"Disclosure", "Sam Smith"}}

	score, _ := scorer.Score(source, candidate)
	if score < 0.95 {
		t.Errorf("best-pair artist similarity scored %f", score)
	}
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(0.6, 3000)

	pairs := []struct {
		src  models.SourceTrack
		cand models.CandidateTrack
	}{
		{src("a", "b", 1), cand("zzzz", "yyyy", 9000000)},
		{src("Same", "Same", 0), cand("Same", "Same", 0)},
		{src("Track", "", 0), models.CandidateTrack{Title: "Track"}},
	}
	for _, pair := range pairs {
		score, _ := scorer.Score(pair.src, pair.cand)
		if score < 0 || score > 1 {
			t.Errorf("score %f outside [0, 1] for %q vs %q", score, pair.src.Title, pair.cand.Title)
		}
	}
}
