package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/joeychilson/soundify/internal/formatter"
	"github.com/joeychilson/soundify/internal/tasks"
)

// SyncRun runs a full SoundCloud likes → Spotify playlist migration.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)
	if limit := cmd.Int("limit"); limit > 0 {
		config.Run.Limit = int(limit)
	}
	dryRun := cmd.Bool("dry-run")

	db, store, err := r.openStore(config)
	if err != nil {
		r.logger.Warn("run history unavailable, continuing without it", "error", err)
		store = nil
	}
	if db != nil {
		defer db.Close()
	}

	engine, err := r.buildEngine(ctx, config, store)
	if err != nil {
		return err
	}

	r.logger.Info("starting migration", "dry_run", dryRun, "limit", config.Run.Limit)
	r.writePlain("Starting likes migration...\n\n")

	progressCh := make(chan tasks.ProgressUpdate, 64)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchLikes:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.StartBatch:
				r.writePlain("\n🔍 %s\n", update.Message)
			case tasks.ResolveTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.CreatePlaylist, tasks.WriteTracks:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	summary, err := engine.Run(ctx, progressCh, tasks.RunOpts{
		PlaylistName: cmd.String("name"),
		DryRun:       dryRun,
	})
	close(progressCh)
	<-progressDone

	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(summary, true)
	}

	r.writePlain("\n")
	r.writePlainHeader("Migration Complete!")
	r.writePlain("%s", formatter.ReportToText(summary))
	return nil
}
