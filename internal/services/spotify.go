// Spotify [SearchService] and [PlaylistWriter] implementation built on
// zmb3/spotify. Token acquisition happens elsewhere; this client runs off a
// previously issued refresh token with playlist-modify scope.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/joeychilson/soundify/internal/match"
	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

// SpotifyService implements candidate search and playlist writing against
// the Spotify Web API.
type SpotifyService struct {
	client *spotify.Client
	logger *log.Logger
}

// NewSpotifyService builds an authenticated Spotify client from stored
// credentials. The refresh token is exchanged lazily on first use.
func NewSpotifyService(ctx context.Context, cfg shared.SpotifyConfig, logger *log.Logger) (*SpotifyService, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, fmt.Errorf("%w: Spotify client_id, client_secret and refresh_token required", shared.ErrMissingCredentials)
	}

	authConf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute), // force refresh on first request
	}

	httpClient := authConf.Client(ctx, token)
	httpClient.Timeout = 30 * time.Second

	return &SpotifyService{
		client: spotify.New(httpClient),
		logger: shared.WithLogger(logger, "service", "spotify"),
	}, nil
}

// NewSpotifyServiceWithClient wraps an already constructed client, used by
// tests and by callers that manage auth themselves.
func NewSpotifyServiceWithClient(client *spotify.Client, logger *log.Logger) *SpotifyService {
	return &SpotifyService{client: client, logger: logger}
}

// Name returns the service name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// FetchCandidates searches the catalog for possible matches of track.
//
// An ISRC query runs first when the source carries one, then a fielded
// track/artist query, then a plain cleaned-title query as backup. Results
// are merged in that order, deduplicated by ID, and capped at limit.
func (s *SpotifyService) FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: candidate limit must be positive", shared.ErrInvalidArgument)
	}

	var queries []string
	if track.ISRC != "" {
		queries = append(queries, "isrc:"+track.ISRC)
	}
	queries = append(queries, buildSearchQueries(track)...)

	var candidates []models.CandidateTrack
	seen := make(map[string]bool)

	for _, query := range queries {
		found, err := s.searchTracks(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		for _, c := range found {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			candidates = append(candidates, c)
			if len(candidates) >= limit {
				return candidates, nil
			}
		}
	}

	return candidates, nil
}

// buildSearchQueries derives search queries from noisy source metadata.
// "Artist - Title" titles are split; otherwise the uploader/publisher artist
// is paired with the cleaned title.
func buildSearchQueries(track models.SourceTrack) []string {
	title := match.CleanTitle(track.Title)
	artist := track.Artist()
	if a, t, ok := match.SplitArtistTitle(title); ok {
		artist, title = a, t
	}

	var queries []string
	if artist != "" && title != "" {
		queries = append(queries, fmt.Sprintf("track:%q artist:%q", title, artist))
	}
	if title != "" {
		queries = append(queries, title)
	}
	return queries
}

func (s *SpotifyService) searchTracks(ctx context.Context, query string, limit int) ([]models.CandidateTrack, error) {
	results, err := s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, wrapSpotifyErr("search", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	candidates := make([]models.CandidateTrack, 0, len(results.Tracks.Tracks))
	for _, t := range results.Tracks.Tracks {
		candidates = append(candidates, toCandidateTrack(t))
	}
	return candidates, nil
}

// toCandidateTrack maps a Spotify track to the engine's model.
func toCandidateTrack(t spotify.FullTrack) models.CandidateTrack {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return models.CandidateTrack{
		ID:         string(t.ID),
		Title:      t.Name,
		Artists:    artists,
		Album:      t.Album.Name,
		DurationMS: int(t.Duration),
		ISRC:       t.ExternalIDs["isrc"],
		Popularity: int(t.Popularity),
	}
}

// GetOrCreatePlaylist finds the current user's playlist by name, creating a
// private one when it does not exist yet.
func (s *SpotifyService) GetOrCreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	user, err := s.client.CurrentUser(ctx)
	if err != nil {
		return nil, wrapSpotifyErr("current user", err)
	}

	page, err := s.client.CurrentUsersPlaylists(ctx)
	if err != nil {
		return nil, wrapSpotifyErr("list playlists", err)
	}
	for {
		for _, pl := range page.Playlists {
			if pl.Name == name {
				return &models.Playlist{
					ID:          string(pl.ID),
					Name:        pl.Name,
					URL:         pl.ExternalURLs["spotify"],
					TrackCount:  int(pl.Tracks.Total),
					Description: description,
				}, nil
			}
		}
		err = s.client.NextPage(ctx, page)
		if errors.Is(err, spotify.ErrNoMorePages) {
			break
		}
		if err != nil {
			return nil, wrapSpotifyErr("list playlists", err)
		}
	}

	created, err := s.client.CreatePlaylistForUser(ctx, user.ID, name, description, false, false)
	if err != nil {
		return nil, wrapSpotifyErr("create playlist", err)
	}
	if s.logger != nil {
		s.logger.Info("created playlist", "name", name, "id", created.ID)
	}

	return &models.Playlist{
		ID:          string(created.ID),
		Name:        created.Name,
		Description: description,
		URL:         created.ExternalURLs["spotify"],
	}, nil
}

// AddTracks appends tracks to the playlist in API-sized chunks of 100.
// Callers must pass a deduplicated list.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	for i := 0; i < len(trackIDs); i += 100 {
		end := i + 100
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		chunk := make([]spotify.ID, 0, end-i)
		for _, id := range trackIDs[i:end] {
			chunk = append(chunk, spotify.ID(id))
		}
		if _, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), chunk...); err != nil {
			return wrapSpotifyErr("add tracks", err)
		}
	}
	return nil
}

// wrapSpotifyErr maps API failures onto the shared error taxonomy so the
// orchestrator's retry policy can classify them.
func wrapSpotifyErr(op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= 500 {
			return fmt.Errorf("%w: spotify %s: %v", shared.ErrRateLimited, op, err)
		}
		return fmt.Errorf("%w: spotify %s: %v", shared.ErrAPIRequest, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: spotify %s: %v", shared.ErrRateLimited, op, err)
	}
	return fmt.Errorf("%w: spotify %s: %v", shared.ErrAPIRequest, op, err)
}
