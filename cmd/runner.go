package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/joeychilson/soundify/internal/llm"
	"github.com/joeychilson/soundify/internal/match"
	"github.com/joeychilson/soundify/internal/repositories"
	"github.com/joeychilson/soundify/internal/services"
	"github.com/joeychilson/soundify/internal/shared"
	"github.com/joeychilson/soundify/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	likes  services.LikesSource
	search services.SearchService
	writer services.PlaylistWriter
	judge  match.Judge
	store  tasks.ResultStore
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Service fields left nil are constructed from config on first use, so tests
// can inject fakes while the CLI builds the real clients lazily.
type RunnerOpts struct {
	Config *shared.Config
	Likes  services.LikesSource
	Search services.SearchService
	Writer services.PlaylistWriter
	Judge  match.Judge
	Store  tasks.ResultStore
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		likes:  opts.Likes,
		search: opts.Search,
		writer: opts.Writer,
		judge:  opts.Judge,
		store:  opts.Store,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, likesCommand, historyCommand, setupCommand, configCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective config for a command: the --config file
// when it exists, the runner's config otherwise, with environment overrides
// applied last.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	path := cmd.String("config")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if config, err := shared.LoadConfig(path); err == nil {
				config.ApplyEnv()
				return config
			} else {
				r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
			}
		}
	}
	r.config.ApplyEnv()
	return r.config
}

// likesSource returns the injected likes source or builds the SoundCloud client.
func (r *Runner) likesSource(config *shared.Config) services.LikesSource {
	if r.likes != nil {
		return r.likes
	}
	return services.NewSoundCloudService(config.Credentials.SoundCloud, r.logger)
}

// spotify returns the injected search/writer pair or builds one Spotify
// client serving both roles.
func (r *Runner) spotify(ctx context.Context, config *shared.Config) (services.SearchService, services.PlaylistWriter, error) {
	if r.search != nil && r.writer != nil {
		return r.search, r.writer, nil
	}
	service, err := services.NewSpotifyService(ctx, config.Credentials.Spotify, r.logger)
	if err != nil {
		return nil, nil, err
	}
	search, writer := services.SearchService(service), services.PlaylistWriter(service)
	if r.search != nil {
		search = r.search
	}
	if r.writer != nil {
		writer = r.writer
	}
	return search, writer, nil
}

// aiJudge returns the injected judge, or one built from the OpenAI config.
// Nil when no API key is configured; the resolver then falls back to its
// scorer-only rule for ambiguous tracks.
func (r *Runner) aiJudge(config *shared.Config) match.Judge {
	if r.judge != nil {
		return r.judge
	}
	if config.Credentials.OpenAI.APIKey == "" {
		r.logger.Warn("no OpenAI API key configured, ambiguous tracks use the conservative fallback")
		return nil
	}
	client := llm.NewClient(llm.Config{
		APIKey:  config.Credentials.OpenAI.APIKey,
		BaseURL: config.Credentials.OpenAI.BaseURL,
		Model:   config.Credentials.OpenAI.Model,
	})
	return llm.NewJudge(client, r.logger)
}

// openStore opens the run-history database. A missing or broken database is
// not fatal for a sync; the caller decides whether to continue without
// persistence.
func (r *Runner) openStore(config *shared.Config) (*sql.DB, tasks.ResultStore, error) {
	if r.store != nil {
		return nil, r.store, nil
	}

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, repositories.NewRunRepository(db), nil
}

// buildEngine wires a MigrationEngine from the effective config.
func (r *Runner) buildEngine(ctx context.Context, config *shared.Config, store tasks.ResultStore) (*tasks.MigrationEngine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	search, writer, err := r.spotify(ctx, config)
	if err != nil {
		return nil, err
	}

	return tasks.NewMigrationEngine(tasks.EngineOpts{
		Likes:   r.likesSource(config),
		Search:  search,
		Writer:  writer,
		Judge:   r.aiJudge(config),
		Store:   store,
		Matcher: config.Matcher,
		Run:     config.Run,
		Logger:  r.logger,
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
