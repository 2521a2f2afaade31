// package repositories provides the persistence layer for migration run history.
//
// RunRepository stores one row per run plus one row per per-track match
// result, keyed by the run ID, so past migrations can be listed and
// inspected from the history command.
package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/shared"
)

// RunRecord is a persisted migration run.
type RunRecord struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	PlaylistID  string     `json:"playlist_id,omitempty"`
	PlaylistURL string     `json:"playlist_url,omitempty"`
	Total       int        `json:"total"`
	Matched     int        `json:"matched"`
	AIResolved  int        `json:"ai_resolved"`
	Unmatched   int        `json:"unmatched"`
	Errored     int        `json:"errored"`
}

// RunRepository persists run summaries and their per-track results.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// SaveRun inserts a run and its match results in a single transaction.
func (r *RunRepository) SaveRun(summary *models.RunSummary, startedAt, finishedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var playlistID, playlistURL string
	if summary.Playlist != nil {
		playlistID = summary.Playlist.ID
		playlistURL = summary.Playlist.URL
	}

	_, err = tx.Exec(`
		INSERT INTO runs (id, started_at, finished_at, playlist_id, playlist_url, total, matched, ai_resolved, unmatched, errored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		summary.RunID,
		startedAt,
		finishedAt,
		playlistID,
		playlistURL,
		summary.Total(),
		summary.Matched,
		summary.AIResolved,
		summary.Unmatched,
		summary.Errored,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO match_results (id, run_id, position, source_track_id, source_title, source_artist, candidate_id, tier, score, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for position, result := range summary.Results {
		_, err = stmt.Exec(
			shared.GenerateID(),
			summary.RunID,
			position,
			result.SourceTrackID,
			result.SourceTitle,
			result.SourceArtist,
			result.CandidateID,
			string(result.Tier),
			result.Score,
			result.Reason,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert match result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}

	return nil
}

// ListRuns returns up to limit runs, most recent first. A limit of 0 returns all runs.
func (r *RunRepository) ListRuns(limit int) ([]RunRecord, error) {
	query := `
		SELECT id, started_at, finished_at, playlist_id, playlist_url, total, matched, ai_resolved, unmatched, errored
		FROM runs
		ORDER BY started_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		record, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *record)
	}
	return runs, rows.Err()
}

// GetRun retrieves a run and its results by ID.
func (r *RunRepository) GetRun(id string) (*RunRecord, []models.MatchResult, error) {
	row := r.db.QueryRow(`
		SELECT id, started_at, finished_at, playlist_id, playlist_url, total, matched, ai_resolved, unmatched, errored
		FROM runs
		WHERE id = ?
	`, id)

	record, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("%w: %s", shared.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := r.db.Query(`
		SELECT source_track_id, source_title, source_artist, candidate_id, tier, score, reason
		FROM match_results
		WHERE run_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query match results: %w", err)
	}
	defer rows.Close()

	var results []models.MatchResult
	for rows.Next() {
		var result models.MatchResult
		var candidateID sql.NullString
		var tier string
		if err := rows.Scan(
			&result.SourceTrackID,
			&result.SourceTitle,
			&result.SourceArtist,
			&candidateID,
			&tier,
			&result.Score,
			&result.Reason,
		); err != nil {
			return nil, nil, fmt.Errorf("failed to scan match result: %w", err)
		}
		result.CandidateID = candidateID.String
		result.Tier = models.ConfidenceTier(tier)
		results = append(results, result)
	}

	return record, results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var record RunRecord
	var finishedAt sql.NullTime
	var playlistID, playlistURL sql.NullString

	err := row.Scan(
		&record.ID,
		&record.StartedAt,
		&finishedAt,
		&playlistID,
		&playlistURL,
		&record.Total,
		&record.Matched,
		&record.AIResolved,
		&record.Unmatched,
		&record.Errored,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	if finishedAt.Valid {
		record.FinishedAt = &finishedAt.Time
	}
	record.PlaylistID = playlistID.String
	record.PlaylistURL = playlistURL.String
	return &record, nil
}
