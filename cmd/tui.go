package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/joeychilson/soundify/internal/shared"
	"github.com/joeychilson/soundify/internal/tasks"
	"github.com/joeychilson/soundify/internal/ui"
)

// TUI launches the interactive migration interface.
//
// Logging is redirected to a file so log lines don't corrupt the
// alternate-screen rendering.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	logger, err := shared.NewFileLogger("./tmp/soundify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(logger)

	db, store, err := r.openStore(config)
	if err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		store = nil
	}
	if db != nil {
		defer db.Close()
	}

	engine, err := r.buildEngine(ctx, config, store)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, tasks.RunOpts{DryRun: cmd.Bool("dry-run")})

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run interface: %w", err)
	}
	return nil
}
