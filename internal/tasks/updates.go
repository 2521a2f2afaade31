package tasks

import (
	"fmt"

	"github.com/joeychilson/soundify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLikes Phase = iota
	ResolveTracks
	StartBatch
	CreatePlaylist
	WriteTracks
	Finished
)

func (p Phase) String() string {
	switch p {
	case FetchLikes:
		return "fetch_likes"
	case ResolveTracks:
		return "resolve_tracks"
	case StartBatch:
		return "start_batch"
	case CreatePlaylist:
		return "create_playlist"
	case WriteTracks:
		return "write_tracks"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func fetchingLikesUpdate() ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLikes,
		Step:    1,
		Total:   1,
		Message: "Fetching liked tracks from SoundCloud...",
	}
}

func likesFetchedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLikes,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d liked tracks", count),
		Data:    count,
	}
}

func batchStartedUpdate(batch, totalBatches int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartBatch,
		Step:    batch,
		Total:   totalBatches,
		Message: fmt.Sprintf("Processing batch %d of %d", batch, totalBatches),
	}
}

func trackResolvedUpdate(step, total int, result models.MatchResult) ProgressUpdate {
	var status string
	switch {
	case result.Tier == models.TierNone:
		status = fmt.Sprintf("✗ %s (%s)", result.SourceTitle, result.Reason)
	case result.Tier == models.TierAIResolved:
		status = fmt.Sprintf("✓ %s → %s (AI)", result.SourceTitle, result.CandidateID)
	default:
		status = fmt.Sprintf("✓ %s → %s", result.SourceTitle, result.CandidateID)
	}
	return ProgressUpdate{
		Phase:   ResolveTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, status),
		Data:    result,
	}
}

func creatingPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist: %s", name),
	}
}

func writingTracksUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Adding %d tracks to playlist...", count),
	}
}

func finishedUpdate(summary *models.RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Done: %d matched, %d ai-resolved, %d unmatched, %d errored", summary.Matched, summary.AIResolved, summary.Unmatched, summary.Errored),
		Data:    summary,
	}
}
