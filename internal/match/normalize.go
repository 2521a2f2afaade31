// package match implements the track resolution engine: normalization,
// similarity scoring, and the per-track match decision.
//
// Everything here is deterministic and CPU-bound; provider calls happen
// behind the [CandidateProvider] and [Judge] interfaces so the engine can be
// tested with injected fakes.
package match

import (
	"regexp"
	"sort"
	"strings"
)

// Noise annotations stripped before comparison. Mix/edit/remaster tags name
// the same recording with different packaging; version markers like "live",
// "remix" or "acoustic" are kept because they usually name a different one.
var (
	mixSuffixRe = regexp.MustCompile(`(?i)[\(\[]\s*(?:original|extended|radio|club|vip|dub)\s+(?:mix|edit|version)\s*[\)\]]`)
	bareEditRe  = regexp.MustCompile(`(?i)[\(\[]\s*(?:edit|extended|original version|club version|radio version)\s*[\)\]]`)
	remasterRe  = regexp.MustCompile(`(?i)(?:[\(\[]\s*remaster(?:ed)?(?:\s+\d{4})?\s*[\)\]]|\s+-\s+remaster(?:ed)?(?:\s+\d{4})?\s*$)`)
	featRe      = regexp.MustCompile(`(?i)[\(\[]?\s*\b(?:feat\.?|ft\.?|featuring)\s+[^)\]]*[\)\]]?`)
	prefixRe    = regexp.MustCompile(`(?i)^\s*(?:premiere?\s*:|free\s+download\s*:|#tbt)\s*`)
	trailingRe  = regexp.MustCompile(`(?i)\s*(?:\[[^\]]*\]|\(\s*out\s+now\s*\))\s*$`)
	punctRe     = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// CleanTitle strips promotional prefixes, label brackets, featuring credits
// and mix/remaster annotations from a raw title. Casing is preserved.
func CleanTitle(title string) string {
	s := prefixRe.ReplaceAllString(title, "")
	s = trailingRe.ReplaceAllString(s, "")
	s = featRe.ReplaceAllString(s, " ")
	s = mixSuffixRe.ReplaceAllString(s, " ")
	s = bareEditRe.ReplaceAllString(s, " ")
	s = remasterRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// Normalize canonicalizes a title for comparison: noise annotations removed,
// lowercased, punctuation stripped, whitespace collapsed.
//
// Pure function; empty or nil-ish input yields "" and callers must treat an
// empty normalized title as unmatchable.
func Normalize(title string) string {
	s := strings.ToLower(CleanTitle(title))
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// NormalizeArtist canonicalizes an artist name: lowercased, punctuation
// stripped, whitespace collapsed. Featuring lists collapse to the lead name.
func NormalizeArtist(artist string) string {
	s := featRe.ReplaceAllString(artist, " ")
	s = strings.ToLower(s)
	s = punctRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// TokenSort rearranges the words of a normalized string into lexicographic
// order, making downstream similarity order-insensitive.
func TokenSort(s string) string {
	if s == "" {
		return ""
	}
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// NormalizeTrackKey builds a comparable "title|artist" key for exact lookups.
func NormalizeTrackKey(title, artist string) string {
	return Normalize(title) + "|" + NormalizeArtist(artist)
}

// SplitArtistTitle parses "Artist - Title" style titles common on
// SoundCloud. Returns ok=false when no separator is present.
func SplitArtistTitle(title string) (artist, track string, ok bool) {
	for _, sep := range []string{" - ", " – ", " — "} {
		if idx := strings.Index(title, sep); idx > 0 {
			artist = strings.TrimSpace(title[:idx])
			track = strings.TrimSpace(title[idx+len(sep):])
			if artist != "" && track != "" {
				return artist, track, true
			}
		}
	}
	return "", "", false
}
