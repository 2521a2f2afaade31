// SoundCloud api-v2 [LikesSource] implementation.
//
// Uses the public api-v2 endpoints with a scraped client_id; there is no
// official SoundCloud API client.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

const (
	defaultSCBaseURL = "https://api-v2.soundcloud.com"
	scAppVersion     = "1736508062"
	scPageSize       = 24
	scRequestTimeout = 20 * time.Second
)

// SoundCloudService fetches a user's liked tracks from the api-v2 endpoint.
type SoundCloudService struct {
	baseURL    string
	clientID   string
	userID     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSoundCloudService creates a SoundCloud likes client.
func NewSoundCloudService(cfg shared.SoundCloudConfig, logger *log.Logger) *SoundCloudService {
	return &SoundCloudService{
		baseURL:    defaultSCBaseURL,
		clientID:   cfg.ClientID,
		userID:     cfg.UserID,
		httpClient: &http.Client{Timeout: scRequestTimeout},
		logger:     shared.WithLogger(logger, "service", "soundcloud"),
	}
}

// Name returns the service name.
func (s *SoundCloudService) Name() string {
	return "SoundCloud"
}

type scUser struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
}

type scPublisherMetadata struct {
	Artist       string `json:"artist"`
	ReleaseTitle string `json:"release_title"`
	ISRC         string `json:"isrc"`
}

type scTrack struct {
	ID                int64                `json:"id"`
	Title             string               `json:"title"`
	FullDuration      int                  `json:"full_duration"`
	PermalinkURL      string               `json:"permalink_url"`
	User              scUser               `json:"user"`
	LabelName         string               `json:"label_name"`
	PublisherMetadata *scPublisherMetadata `json:"publisher_metadata"`
}

type scLike struct {
	Track scTrack `json:"track"`
}

type scLikesResponse struct {
	Collection []scLike `json:"collection"`
	NextHref   string   `json:"next_href"`
}

// FetchLikes retrieves liked tracks in liked order, following
// linked_partitioning pagination until limit is reached or pages run out.
func (s *SoundCloudService) FetchLikes(ctx context.Context, limit int) ([]models.SourceTrack, error) {
	if s.clientID == "" || s.userID == "" {
		return nil, fmt.Errorf("%w: SoundCloud client_id and user_id required", shared.ErrMissingCredentials)
	}

	var tracks []models.SourceTrack
	nextHref := ""

	for {
		pageSize := scPageSize
		if limit > 0 && limit-len(tracks) < pageSize {
			pageSize = limit - len(tracks)
		}

		page, next, err := s.fetchPage(ctx, nextHref, pageSize)
		if err != nil {
			return nil, err
		}

		for _, like := range page {
			tracks = append(tracks, s.toSourceTrack(like.Track))
			if limit > 0 && len(tracks) >= limit {
				return tracks, nil
			}
		}

		if s.logger != nil {
			s.logger.Debug("fetched likes page", "page_size", len(page), "total", len(tracks))
		}

		if next == "" || len(page) == 0 {
			return tracks, nil
		}
		nextHref = next
	}
}

// fetchPage requests one page of likes, either the first page or a next_href
// continuation with the default params re-applied.
func (s *SoundCloudService) fetchPage(ctx context.Context, nextHref string, pageSize int) ([]scLike, string, error) {
	var rawURL string
	if nextHref != "" {
		withParams, err := s.addDefaultParams(nextHref)
		if err != nil {
			return nil, "", err
		}
		rawURL = withParams
	} else {
		params := url.Values{}
		s.setDefaultParams(params)
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("linked_partitioning", "1")
		rawURL = fmt.Sprintf("%s/users/%s/track_likes?%s", s.baseURL, url.PathEscape(s.userID), params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "", fmt.Errorf("%w: soundcloud likes", shared.ErrRateLimited)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, "", fmt.Errorf("%w: soundcloud status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	var parsed scLikesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, "", fmt.Errorf("failed to decode likes response: %w", err)
	}
	return parsed.Collection, parsed.NextHref, nil
}

// addDefaultParams re-applies client_id and app params to a next_href URL.
func (s *SoundCloudService) addDefaultParams(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid next_href: %w", err)
	}
	params := parsed.Query()
	s.setDefaultParams(params)
	parsed.RawQuery = params.Encode()
	return parsed.String(), nil
}

func (s *SoundCloudService) setDefaultParams(params url.Values) {
	params.Set("client_id", s.clientID)
	params.Set("app_version", scAppVersion)
	params.Set("app_locale", "en")
}

// toSourceTrack maps an api-v2 track to the engine's model. Artist names
// come from publisher metadata when present, otherwise the uploader.
func (s *SoundCloudService) toSourceTrack(t scTrack) models.SourceTrack {
	var artists []string
	if t.PublisherMetadata != nil && t.PublisherMetadata.Artist != "" {
		artists = append(artists, t.PublisherMetadata.Artist)
	}
	if t.User.Username != "" {
		artists = append(artists, t.User.Username)
	}

	track := models.SourceTrack{
		ID:         strconv.FormatInt(t.ID, 10),
		Title:      t.Title,
		Artists:    artists,
		DurationMS: t.FullDuration,
		Permalink:  t.PermalinkURL,
	}
	if t.PublisherMetadata != nil {
		track.ISRC = t.PublisherMetadata.ISRC
	}
	return track
}
