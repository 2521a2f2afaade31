// package tasks implements the migration run orchestrator.
//
// The core abstraction is MigrationEngine, which drives the track resolver
// over a user's liked tracks with bounded concurrency, per-backend rate
// limits and retry, then hands the matched IDs to the playlist writer.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/joeychilson/soundify/internal/match"
	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/services"
	"github.com/joeychilson/soundify/internal/shared"
)

// TrackResolver decides one MatchResult per source track. Implemented by
// match.Resolver; a test double slots in the same way.
type TrackResolver interface {
	Resolve(ctx context.Context, track models.SourceTrack) (models.MatchResult, error)
}

// ResultStore persists a finished run for later audit. Optional.
type ResultStore interface {
	SaveRun(summary *models.RunSummary, startedAt, finishedAt time.Time) error
}

// EngineOpts contains the collaborators and configuration for a MigrationEngine.
type EngineOpts struct {
	Likes   services.LikesSource
	Search  services.SearchService
	Writer  services.PlaylistWriter
	Judge   match.Judge   // nil disables AI tie-breaking
	Store   ResultStore   // nil disables run persistence
	Matcher shared.MatcherConfig
	Run     shared.RunConfig
	Logger  *log.Logger

	// Resolver overrides the resolver built from Search/Judge/Matcher.
	// Mainly for tests; when set, the engine's rate limiting and retry
	// wrappers are bypassed.
	Resolver TrackResolver
}

// RunOpts configures a single migration run.
type RunOpts struct {
	PlaylistName string // default "SoundCloud Likes - YYYY-MM-DD"
	Description  string
	DryRun       bool // resolve only, skip playlist writing
}

// MigrationEngine orchestrates likes → resolution → playlist.
type MigrationEngine struct {
	likes    services.LikesSource
	writer   services.PlaylistWriter
	store    ResultStore
	resolver TrackResolver
	runCfg   shared.RunConfig
	logger   *log.Logger
}

// NewMigrationEngine wires a MigrationEngine. The candidate provider is
// wrapped with the shared search limiter and retry policy; the judge with
// the shared LLM limiter. Workers block only on the limiter of the backend
// they are about to call.
func NewMigrationEngine(opts EngineOpts) *MigrationEngine {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	resolver := opts.Resolver
	if resolver == nil && opts.Search != nil {
		searchRate := opts.Run.SearchRate
		if searchRate <= 0 {
			searchRate = 5.0
		}
		llmRate := opts.Run.LLMRate
		if llmRate <= 0 {
			llmRate = 2.0
		}

		provider := &limitedProvider{
			inner:      opts.Search,
			limiter:    rate.NewLimiter(rate.Limit(searchRate), 1),
			maxRetries: opts.Run.MaxRetries,
			baseDelay:  time.Duration(opts.Run.RetryDelayMS) * time.Millisecond,
			logger:     logger,
		}

		var judge match.Judge
		if opts.Judge != nil {
			judge = &limitedJudge{inner: opts.Judge, limiter: rate.NewLimiter(rate.Limit(llmRate), 1)}
		}

		thresholds := match.Thresholds{
			High:            opts.Matcher.HighThreshold,
			Floor:           opts.Matcher.Floor,
			Margin:          opts.Matcher.Margin,
			AIFallbackFloor: opts.Matcher.AIFallbackFloor,
			TopK:            opts.Matcher.TopK,
		}
		if thresholds.High == 0 {
			thresholds = match.DefaultThresholds()
		}
		scorer := match.NewScorer(opts.Matcher.TitleWeight, opts.Matcher.DurationToleranceMS)
		resolver = match.NewResolver(provider, judge, scorer, thresholds, opts.Run.SearchCandidates, logger)
	}

	return &MigrationEngine{
		likes:    opts.Likes,
		writer:   opts.Writer,
		store:    opts.Store,
		resolver: resolver,
		runCfg:   opts.Run,
		logger:   logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *MigrationEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run performs a full likes migration: fetch, resolve, write, persist.
func (e *MigrationEngine) Run(ctx context.Context, progress chan<- ProgressUpdate, opts RunOpts) (*models.RunSummary, error) {
	if e.likes == nil {
		return nil, fmt.Errorf("%w: likes source not initialized", shared.ErrServiceUnavailable)
	}

	startedAt := time.Now()

	e.sendProgress(progress, fetchingLikesUpdate())
	tracks, err := e.likes.FetchLikes(ctx, e.runCfg.Limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch likes: %v", shared.ErrAPIRequest, err)
	}
	e.sendProgress(progress, likesFetchedUpdate(len(tracks)))

	summary, err := e.ResolveAll(ctx, progress, tracks)
	if err != nil {
		return nil, err
	}

	if !opts.DryRun && len(summary.TrackIDs) > 0 {
		if err := e.writePlaylist(ctx, progress, summary, opts); err != nil {
			e.persist(summary, startedAt)
			return summary, err
		}
	}

	e.persist(summary, startedAt)
	e.sendProgress(progress, finishedUpdate(summary))
	return summary, nil
}

type resolveJob struct {
	index int
	track models.SourceTrack
}

// ResolveAll drives the resolver over tracks with a bounded worker pool.
//
// Jobs are admitted up to the processed-track limit; in-flight work drains
// rather than being cancelled. Results are assembled by original index so
// the output ordering matches the liked-tracks listing regardless of
// completion order, then deduplicated first-occurrence-wins.
func (e *MigrationEngine) ResolveAll(ctx context.Context, progress chan<- ProgressUpdate, tracks []models.SourceTrack) (*models.RunSummary, error) {
	if e.resolver == nil {
		return nil, fmt.Errorf("%w: resolver not initialized", shared.ErrServiceUnavailable)
	}
	if e.runCfg.SearchCandidates < 0 || e.runCfg.Limit < 0 {
		return nil, fmt.Errorf("%w: negative run settings", shared.ErrInvalidConfig)
	}

	workers := e.runCfg.Workers
	if workers <= 0 {
		workers = 4
	}
	batchSize := e.runCfg.BatchSize
	if batchSize <= 0 {
		batchSize = 50
	}

	admit := len(tracks)
	if e.runCfg.Limit > 0 && e.runCfg.Limit < admit {
		admit = e.runCfg.Limit
	}
	totalBatches := (admit + batchSize - 1) / batchSize

	results := make([]models.MatchResult, len(tracks))
	resolved := make([]bool, len(tracks))
	var mu sync.Mutex
	completed := 0

	jobs := make(chan resolveJob)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				result := e.resolveOne(ctx, job.track)
				mu.Lock()
				results[job.index] = result
				resolved[job.index] = true
				completed++
				step := completed
				mu.Unlock()
				e.sendProgress(progress, trackResolvedUpdate(step, admit, result))
			}
		}()
	}

	// Admission loop. Stops at the processed-track limit; already-dispatched
	// jobs run to completion.
dispatch:
	for i := 0; i < admit; i++ {
		if i%batchSize == 0 {
			e.sendProgress(progress, batchStartedUpdate(i/batchSize+1, totalBatches))
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- resolveJob{index: i, track: tracks[i]}:
		}
	}
	close(jobs)
	wg.Wait()

	return e.assemble(results, resolved), nil
}

// resolveOne resolves a single track, degrading provider failures to a
// terminal provider-error result instead of aborting the run.
func (e *MigrationEngine) resolveOne(ctx context.Context, track models.SourceTrack) models.MatchResult {
	result, err := e.resolver.Resolve(ctx, track)
	if err != nil {
		e.logger.Warn("track resolution failed", "track", track.ID, "title", track.Title, "err", err)
		return models.MatchResult{
			SourceTrackID: track.ID,
			SourceTitle:   track.Title,
			SourceArtist:  track.Artist(),
			Tier:          models.TierNone,
			Reason:        match.ReasonProviderError,
		}
	}
	return result
}

// assemble builds the RunSummary in source order, suppressing duplicate
// destination IDs (first occurrence wins) and tallying the counters.
func (e *MigrationEngine) assemble(results []models.MatchResult, resolved []bool) *models.RunSummary {
	summary := &models.RunSummary{RunID: shared.GenerateID()}
	claimed := make(map[string]bool)

	for i, result := range results {
		if !resolved[i] {
			continue
		}

		if result.Matched() && claimed[result.CandidateID] {
			dup := result.CandidateID
			result.Reason = models.ReasonDuplicateOf(dup)
			result.CandidateID = ""
			result.Tier = models.TierNone
		}

		switch {
		case result.Tier == models.TierExact || result.Tier == models.TierHigh:
			summary.Matched++
		case result.Tier == models.TierAIResolved:
			summary.AIResolved++
		case result.Reason == match.ReasonProviderError:
			summary.Errored++
		default:
			summary.Unmatched++
		}

		if result.Matched() {
			claimed[result.CandidateID] = true
			summary.TrackIDs = append(summary.TrackIDs, result.CandidateID)
		}
		summary.Results = append(summary.Results, result)
	}

	return summary
}

// writePlaylist creates (or reuses) the destination playlist and appends the
// deduplicated track IDs.
func (e *MigrationEngine) writePlaylist(ctx context.Context, progress chan<- ProgressUpdate, summary *models.RunSummary, opts RunOpts) error {
	if e.writer == nil {
		return fmt.Errorf("%w: playlist writer not initialized", shared.ErrServiceUnavailable)
	}

	name := opts.PlaylistName
	if name == "" {
		name = fmt.Sprintf("SoundCloud Likes - %s", time.Now().Format("2006-01-02"))
	}
	description := opts.Description
	if description == "" {
		description = fmt.Sprintf("Imported from SoundCloud likes on %s. Contains %d matched tracks.",
			time.Now().Format("2006-01-02 15:04:05"), len(summary.TrackIDs))
	}

	e.sendProgress(progress, creatingPlaylistUpdate(name))
	playlist, err := e.writer.GetOrCreatePlaylist(ctx, name, description)
	if err != nil {
		return fmt.Errorf("%w: failed to create playlist: %v", shared.ErrAPIRequest, err)
	}

	e.sendProgress(progress, writingTracksUpdate(len(summary.TrackIDs)))
	if err := e.writer.AddTracks(ctx, playlist.ID, summary.TrackIDs); err != nil {
		return fmt.Errorf("%w: failed to add tracks: %v", shared.ErrAPIRequest, err)
	}

	playlist.TrackCount = len(summary.TrackIDs)
	summary.Playlist = playlist
	return nil
}

// persist saves the run when a store is configured; persistence failures are
// logged, never fatal.
func (e *MigrationEngine) persist(summary *models.RunSummary, startedAt time.Time) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveRun(summary, startedAt, time.Now()); err != nil {
		e.logger.Warn("failed to persist run", "run", summary.RunID, "err", err)
	}
}

// limitedProvider guards candidate searches with the shared limiter and the
// per-call retry policy.
type limitedProvider struct {
	inner      services.SearchService
	limiter    *rate.Limiter
	maxRetries int
	baseDelay  time.Duration
	logger     *log.Logger
}

func (p *limitedProvider) FetchCandidates(ctx context.Context, track models.SourceTrack, limit int) ([]models.CandidateTrack, error) {
	attempts := p.maxRetries
	if attempts <= 0 {
		attempts = 3
	}
	retrier := NewRetrier(attempts, p.baseDelay)

	for {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		candidates, err := p.inner.FetchCandidates(ctx, track, limit)
		if err == nil {
			return candidates, nil
		}
		if !Transient(err) {
			return nil, err
		}
		delay, ok := retrier.Next()
		if !ok {
			return nil, err
		}
		p.logger.Debug("retrying candidate search", "track", track.ID, "attempt", retrier.Attempt(), "delay", delay)
		if serr := sleepCtx(ctx, delay); serr != nil {
			return nil, serr
		}
	}
}

// limitedJudge guards judge calls with the shared LLM limiter. Retry for the
// model call itself lives inside the llm client.
type limitedJudge struct {
	inner   match.Judge
	limiter *rate.Limiter
}

func (j *limitedJudge) Pick(ctx context.Context, track models.SourceTrack, candidates []models.CandidateTrack) (string, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return j.inner.Pick(ctx, track, candidates)
}
