// package services implements the external collaborators of the resolution
// engine: the SoundCloud likes listing and the Spotify catalog/playlist API.
package services

import (
	"context"

	"github.com/joeychilson/soundify/internal/models"
)

// LikesSource yields a user's liked tracks in stable "liked" order.
type LikesSource interface {
	// FetchLikes retrieves liked tracks, following pagination. limit <= 0
	// means all of them.
	FetchLikes(ctx context.Context, limit int) ([]models.SourceTrack, error)
}

// SearchService finds destination-catalog candidates for a source track.
// Satisfies match.CandidateProvider.
type SearchService interface {
	FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error)
}

// PlaylistWriter owns the destination playlist. The track ID list handed to
// AddTracks must already be deduplicated; the writer is idempotent-safe
// under that contract.
type PlaylistWriter interface {
	GetOrCreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)
	AddTracks(ctx context.Context, playlistID string, trackIDs []string) error
}
