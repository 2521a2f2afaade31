package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joeychilson/soundify/internal/match"
	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

type fakeResolver struct {
	mu      sync.Mutex
	calls   []string
	delay   func(index int) time.Duration
	resolve func(track models.SourceTrack) (models.MatchResult, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, track models.SourceTrack) (models.MatchResult, error) {
	f.mu.Lock()
	index := len(f.calls)
	f.calls = append(f.calls, track.ID)
	f.mu.Unlock()

	if f.delay != nil {
		time.Sleep(f.delay(index))
	}
	if f.resolve != nil {
		return f.resolve(track)
	}
	return models.MatchResult{
		SourceTrackID: track.ID,
		SourceTitle:   track.Title,
		CandidateID:   "sp-" + track.ID,
		Tier:          models.TierHigh,
		Reason:        match.ReasonScoreMargin,
		Score:         0.95,
	}, nil
}

type fakeLikes struct {
	tracks []models.SourceTrack
	err    error
	limit  int
}

func (f *fakeLikes) FetchLikes(ctx context.Context, limit int) ([]models.SourceTrack, error) {
	f.limit = limit
	return f.tracks, f.err
}

type fakeWriter struct {
	mu        sync.Mutex
	playlist  models.Playlist
	name      string
	added     []string
	createErr error
	addErr    error
}

func (f *fakeWriter) GetOrCreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.name = name
	f.playlist = models.Playlist{ID: "pl-1", Name: name, Description: description}
	return &f.playlist, nil
}

func (f *fakeWriter) AddTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return f.addErr
	}
	f.added = append(f.added, trackIDs...)
	return nil
}

type fakeStore struct {
	saved *models.RunSummary
	err   error
}

func (f *fakeStore) SaveRun(summary *models.RunSummary, startedAt, finishedAt time.Time) error {
	f.saved = summary
	return f.err
}

func sourceTracks(n int) []models.SourceTrack {
	tracks := make([]models.SourceTrack, n)
	for i := range tracks {
		tracks[i] = models.SourceTrack{
			ID:      fmt.Sprintf("sc-%03d", i),
			Title:   fmt.Sprintf("Track %d", i),
			Artists: []string{"Artist"},
		}
	}
	return tracks
}

func newTestEngine(t *testing.T, opts EngineOpts) *MigrationEngine {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(&strings.Builder{})
	}
	if opts.Run.Workers == 0 {
		opts.Run.Workers = 4
	}
	return NewMigrationEngine(opts)
}

func TestResolveAllPreservesSourceOrder(t *testing.T) {
	resolver := &fakeResolver{
		// Later jobs finish sooner, so completion order inverts dispatch order.
		delay: func(index int) time.Duration {
			return time.Duration(20-index%20) * time.Millisecond
		},
	}
	engine := newTestEngine(t, EngineOpts{Resolver: resolver, Run: shared.RunConfig{Workers: 8}})

	tracks := sourceTracks(20)
	summary, err := engine.ResolveAll(context.Background(), nil, tracks)
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	if len(summary.Results) != len(tracks) {
		t.Fatalf("got %d results, want %d", len(summary.Results), len(tracks))
	}
	for i, result := range summary.Results {
		if result.SourceTrackID != tracks[i].ID {
			t.Errorf("result %d = %s, want %s", i, result.SourceTrackID, tracks[i].ID)
		}
	}
	if len(summary.TrackIDs) != len(tracks) {
		t.Errorf("got %d track IDs, want %d", len(summary.TrackIDs), len(tracks))
	}
	if summary.Matched != len(tracks) {
		t.Errorf("Matched = %d, want %d", summary.Matched, len(tracks))
	}
}

func TestResolveAllDeduplicatesFirstOccurrenceWins(t *testing.T) {
	resolver := &fakeResolver{
		resolve: func(track models.SourceTrack) (models.MatchResult, error) {
			return models.MatchResult{
				SourceTrackID: track.ID,
				CandidateID:   "sp-shared",
				Tier:          models.TierHigh,
				Reason:        match.ReasonScoreMargin,
			}, nil
		},
	}
	engine := newTestEngine(t, EngineOpts{Resolver: resolver, Run: shared.RunConfig{Workers: 1}})

	summary, err := engine.ResolveAll(context.Background(), nil, sourceTracks(3))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	if len(summary.TrackIDs) != 1 {
		t.Fatalf("got %d track IDs, want 1", len(summary.TrackIDs))
	}
	if summary.Results[0].CandidateID != "sp-shared" {
		t.Errorf("first result lost its candidate: %+v", summary.Results[0])
	}
	for _, result := range summary.Results[1:] {
		if result.Matched() {
			t.Errorf("duplicate %s still matched", result.SourceTrackID)
		}
		if !models.IsDuplicateReason(result.Reason) {
			t.Errorf("duplicate %s reason = %q", result.SourceTrackID, result.Reason)
		}
	}
	if summary.Matched != 1 || summary.Unmatched != 2 {
		t.Errorf("Matched = %d, Unmatched = %d, want 1/2", summary.Matched, summary.Unmatched)
	}
}

func TestResolveAllIdempotent(t *testing.T) {
	// Same tracks, same resolver responses: two runs must agree on every
	// result and on the ordered track IDs, regardless of worker scheduling.
	newResolver := func() *fakeResolver {
		return &fakeResolver{
			delay: func(index int) time.Duration {
				return time.Duration(index%3) * time.Millisecond
			},
			resolve: func(track models.SourceTrack) (models.MatchResult, error) {
				result := models.MatchResult{
					SourceTrackID: track.ID,
					SourceTitle:   track.Title,
					CandidateID:   "sp-" + track.ID,
					Tier:          models.TierHigh,
					Reason:        match.ReasonScoreMargin,
					Score:         0.95,
				}
				// Two tracks collide on one candidate to exercise dedupe.
				if track.ID == "sc-004" || track.ID == "sc-007" {
					result.CandidateID = "sp-shared"
				}
				return result, nil
			},
		}
	}
	tracks := sourceTracks(12)

	run := func() *models.RunSummary {
		engine := newTestEngine(t, EngineOpts{Resolver: newResolver(), Run: shared.RunConfig{Workers: 6}})
		summary, err := engine.ResolveAll(context.Background(), nil, tracks)
		if err != nil {
			t.Fatalf("ResolveAll() error = %v", err)
		}
		return summary
	}

	first := run()
	second := run()

	if len(first.Results) != len(second.Results) {
		t.Fatalf("result counts differ: %d vs %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i] != second.Results[i] {
			t.Errorf("result %d differs:\n%+v\n%+v", i, first.Results[i], second.Results[i])
		}
	}
	if fmt.Sprint(first.TrackIDs) != fmt.Sprint(second.TrackIDs) {
		t.Errorf("track IDs differ: %v vs %v", first.TrackIDs, second.TrackIDs)
	}
	if first.Matched != second.Matched || first.Unmatched != second.Unmatched {
		t.Errorf("counters differ: %d/%d vs %d/%d", first.Matched, first.Unmatched, second.Matched, second.Unmatched)
	}
}

func TestResolveAllHonorsTrackLimit(t *testing.T) {
	resolver := &fakeResolver{}
	engine := newTestEngine(t, EngineOpts{
		Resolver: resolver,
		Run:      shared.RunConfig{Workers: 3, Limit: 10},
	})

	summary, err := engine.ResolveAll(context.Background(), nil, sourceTracks(25))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	if len(summary.Results) != 10 {
		t.Fatalf("got %d results, want 10", len(summary.Results))
	}
	for i, result := range summary.Results {
		want := fmt.Sprintf("sc-%03d", i)
		if result.SourceTrackID != want {
			t.Errorf("result %d = %s, want %s", i, result.SourceTrackID, want)
		}
	}
}

func TestResolveAllDegradesProviderErrors(t *testing.T) {
	resolver := &fakeResolver{
		resolve: func(track models.SourceTrack) (models.MatchResult, error) {
			if track.ID == "sc-001" {
				return models.MatchResult{}, shared.ErrServiceUnavailable
			}
			return models.MatchResult{
				SourceTrackID: track.ID,
				CandidateID:   "sp-" + track.ID,
				Tier:          models.TierExact,
				Reason:        match.ReasonISRC,
			}, nil
		},
	}
	engine := newTestEngine(t, EngineOpts{Resolver: resolver, Run: shared.RunConfig{Workers: 2}})

	summary, err := engine.ResolveAll(context.Background(), nil, sourceTracks(3))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}

	if summary.Errored != 1 {
		t.Errorf("Errored = %d, want 1", summary.Errored)
	}
	if summary.Matched != 2 {
		t.Errorf("Matched = %d, want 2", summary.Matched)
	}
	failed := summary.Results[1]
	if failed.Tier != models.TierNone || failed.Reason != match.ReasonProviderError {
		t.Errorf("failed result = %+v", failed)
	}
	if failed.SourceTitle != "Track 1" {
		t.Errorf("failed result lost source metadata: %+v", failed)
	}
}

func TestResolveAllEmitsProgress(t *testing.T) {
	engine := newTestEngine(t, EngineOpts{
		Resolver: &fakeResolver{},
		Run:      shared.RunConfig{Workers: 1, BatchSize: 2},
	})

	progress := make(chan ProgressUpdate, 64)
	if _, err := engine.ResolveAll(context.Background(), progress, sourceTracks(5)); err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	close(progress)

	var batches, tracks int
	for update := range progress {
		switch update.Phase {
		case StartBatch:
			batches++
		case ResolveTracks:
			tracks++
		}
	}
	if batches != 3 {
		t.Errorf("got %d batch updates, want 3", batches)
	}
	if tracks != 5 {
		t.Errorf("got %d track updates, want 5", tracks)
	}
}

func TestRunWritesPlaylist(t *testing.T) {
	likes := &fakeLikes{tracks: sourceTracks(4)}
	writer := &fakeWriter{}
	store := &fakeStore{}
	engine := newTestEngine(t, EngineOpts{
		Likes:    likes,
		Writer:   writer,
		Store:    store,
		Resolver: &fakeResolver{},
		Run:      shared.RunConfig{Workers: 2},
	})

	summary, err := engine.Run(context.Background(), nil, RunOpts{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.HasPrefix(writer.name, "SoundCloud Likes - ") {
		t.Errorf("playlist name = %q", writer.name)
	}
	if len(writer.added) != 4 {
		t.Errorf("added %d tracks, want 4", len(writer.added))
	}
	if summary.Playlist == nil || summary.Playlist.TrackCount != 4 {
		t.Errorf("summary playlist = %+v", summary.Playlist)
	}
	if store.saved == nil || store.saved.RunID != summary.RunID {
		t.Errorf("run was not persisted: %+v", store.saved)
	}
}

func TestRunDryRunSkipsWriter(t *testing.T) {
	writer := &fakeWriter{createErr: errors.New("should not be called")}
	engine := newTestEngine(t, EngineOpts{
		Likes:    &fakeLikes{tracks: sourceTracks(2)},
		Writer:   writer,
		Resolver: &fakeResolver{},
		Run:      shared.RunConfig{Workers: 1},
	})

	summary, err := engine.Run(context.Background(), nil, RunOpts{DryRun: true})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Playlist != nil {
		t.Errorf("dry run created a playlist: %+v", summary.Playlist)
	}
	if len(summary.TrackIDs) != 2 {
		t.Errorf("got %d track IDs, want 2", len(summary.TrackIDs))
	}
}

func TestRunCustomPlaylistName(t *testing.T) {
	writer := &fakeWriter{}
	engine := newTestEngine(t, EngineOpts{
		Likes:    &fakeLikes{tracks: sourceTracks(1)},
		Writer:   writer,
		Resolver: &fakeResolver{},
		Run:      shared.RunConfig{Workers: 1},
	})

	if _, err := engine.Run(context.Background(), nil, RunOpts{PlaylistName: "My Imports"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if writer.name != "My Imports" {
		t.Errorf("playlist name = %q, want %q", writer.name, "My Imports")
	}
}

func TestRunPropagatesLikesError(t *testing.T) {
	engine := newTestEngine(t, EngineOpts{
		Likes:    &fakeLikes{err: errors.New("boom")},
		Resolver: &fakeResolver{},
		Run:      shared.RunConfig{Workers: 1},
	})

	if _, err := engine.Run(context.Background(), nil, RunOpts{}); !errors.Is(err, shared.ErrAPIRequest) {
		t.Errorf("Run() error = %v, want ErrAPIRequest", err)
	}
}

type flakySearch struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (s *flakySearch) FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls <= s.failures {
		return nil, shared.ErrRateLimited
	}
	return []models.CandidateTrack{{ID: "sp-1", Title: track.Title, Artists: track.Artists}}, nil
}

func TestLimitedProviderRetriesTransientErrors(t *testing.T) {
	search := &flakySearch{failures: 2}
	engine := newTestEngine(t, EngineOpts{
		Search: search,
		Run: shared.RunConfig{
			Workers:          1,
			MaxRetries:       3,
			RetryDelayMS:     1,
			SearchCandidates: 5,
			SearchRate:       1000,
		},
	})

	summary, err := engine.ResolveAll(context.Background(), nil, sourceTracks(1))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if search.calls != 3 {
		t.Errorf("search called %d times, want 3", search.calls)
	}
	if summary.Errored != 0 {
		t.Errorf("Errored = %d, want 0", summary.Errored)
	}
}

func TestLimitedProviderGivesUpAfterMaxRetries(t *testing.T) {
	search := &flakySearch{failures: 100}
	engine := newTestEngine(t, EngineOpts{
		Search: search,
		Run: shared.RunConfig{
			Workers:          1,
			MaxRetries:       2,
			RetryDelayMS:     1,
			SearchCandidates: 5,
			SearchRate:       1000,
		},
	})

	summary, err := engine.ResolveAll(context.Background(), nil, sourceTracks(1))
	if err != nil {
		t.Fatalf("ResolveAll() error = %v", err)
	}
	if summary.Errored != 1 {
		t.Errorf("Errored = %d, want 1", summary.Errored)
	}
	if summary.Results[0].Reason != match.ReasonProviderError {
		t.Errorf("reason = %q, want %q", summary.Results[0].Reason, match.ReasonProviderError)
	}
}
