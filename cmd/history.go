package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/joeychilson/soundify/internal/formatter"
	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/repositories"
	"github.com/joeychilson/soundify/internal/shared"
)

// History lists past migration runs, or the per-track results of one run
// when --id is given.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	repo := repositories.NewRunRepository(db)

	if runID := cmd.String("id"); runID != "" {
		return r.historyDetail(repo, runID, cmd)
	}

	if cmd.Bool("csv") {
		return fmt.Errorf("%w: --csv requires --id", shared.ErrInvalidFlag)
	}

	runs, err := repo.ListRuns(int(cmd.Int("limit")))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, true)
	}

	r.writePlain("%s", formatter.RunsToText(runs))
	return nil
}

// historyDetail prints one run with its per-track results.
func (r *Runner) historyDetail(repo *repositories.RunRepository, runID string, cmd *cli.Command) error {
	record, results, err := repo.GetRun(runID)
	if err != nil {
		return err
	}

	summary := &models.RunSummary{
		RunID:      record.ID,
		Results:    results,
		Matched:    record.Matched,
		AIResolved: record.AIResolved,
		Unmatched:  record.Unmatched,
		Errored:    record.Errored,
	}
	if record.PlaylistID != "" {
		summary.Playlist = &models.Playlist{ID: record.PlaylistID, URL: record.PlaylistURL}
	}

	switch {
	case cmd.Bool("json"):
		return r.writeJSON(struct {
			Run     *repositories.RunRecord `json:"run"`
			Results []models.MatchResult    `json:"results"`
		}{record, results}, true)
	case cmd.Bool("csv"):
		data, err := formatter.ReportToCSV(summary)
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	default:
		r.writePlain("%s", formatter.ReportToText(summary))
		return nil
	}
}
