// package models defines the data model for the likes migration engine
package models

import "strings"

// SourceTrack is a liked track on SoundCloud with whatever metadata the
// api-v2 endpoint surfaced. Immutable once fetched; the resolution engine
// reads it but never modifies it.
type SourceTrack struct {
	ID         string   // opaque SoundCloud identifier
	Title      string   // raw title, often "Artist - Title (Extended Mix)"
	Artists    []string // uploader and/or publisher artist names
	DurationMS int      // 0 when unknown
	Permalink  string   // public URL for audit logs
	ISRC       string   // from publisher metadata, rarely present
}

// Artist returns the primary artist name, or "" when none is known.
func (t SourceTrack) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// CandidateTrack is a Spotify search result considered as a possible match.
type CandidateTrack struct {
	ID         string   // Spotify track ID
	Title      string
	Artists    []string // ordered as returned by the API
	Album      string
	DurationMS int
	ISRC       string // strongest matching signal when present
	Popularity int    // provider ranking hint, never trusted as ground truth
}

// Artist returns the primary artist name, or "" when none is known.
func (t CandidateTrack) Artist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ConfidenceTier labels how a match decision was reached.
type ConfidenceTier string

const (
	TierExact      ConfidenceTier = "exact"       // ISRC equality
	TierHigh       ConfidenceTier = "high"        // scorer above threshold with clear margin
	TierAIResolved ConfidenceTier = "ai_resolved" // AI judge broke the tie (or conservative fallback)
	TierNone       ConfidenceTier = "none"        // no acceptable candidate
)

// MatchResult is the single, immutable decision for one source track.
//
// CandidateID is empty exactly when Tier is [TierNone].
type MatchResult struct {
	SourceTrackID string
	SourceTitle   string
	SourceArtist  string
	CandidateID   string
	Tier          ConfidenceTier
	Score         float64 // informational similarity in [0,1]
	Reason        string  // short diagnostic for audit logs
}

// Matched reports whether a destination track was chosen.
func (r MatchResult) Matched() bool {
	return r.CandidateID != "" && r.Tier != TierNone
}

// Playlist represents the destination playlist created or reused for a run.
type Playlist struct {
	ID          string
	Name        string
	Description string
	URL         string
	TrackCount  int
}

// RunSummary aggregates one migration run. Results are ordered by the
// original liked-tracks listing regardless of completion order, and TrackIDs
// holds the deduplicated destination IDs in that same order.
type RunSummary struct {
	RunID      string
	Results    []MatchResult
	TrackIDs   []string
	Matched    int
	AIResolved int
	Unmatched  int
	Errored    int
	Playlist   *Playlist // nil for dry runs or when no tracks matched
}

// Total returns the number of tracks that completed resolution.
func (s *RunSummary) Total() int {
	return len(s.Results)
}

// ReasonDuplicateOf builds the audit reason for a candidate already claimed
// by an earlier source track.
func ReasonDuplicateOf(candidateID string) string {
	return "duplicate-of-" + candidateID
}

// IsDuplicateReason reports whether reason marks a suppressed duplicate.
func IsDuplicateReason(reason string) bool {
	return strings.HasPrefix(reason, "duplicate-of-")
}
