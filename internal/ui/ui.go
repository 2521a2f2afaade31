package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeychilson/soundify/internal/models"
	"github.com/joeychilson/soundify/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	MigrateView
	ResultView
)

type progressUpdateMsg tasks.ProgressUpdate

type runCompleteMsg struct {
	summary *models.RunSummary
	err     error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	engine       *tasks.MigrationEngine
	opts         tasks.RunOpts
	view         ViewState
	width        int
	height       int
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	summary      *models.RunSummary
	runErr       error
	done         chan runCompleteMsg
	spin         spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model around a configured MigrationEngine.
func NewModel(ctx context.Context, engine *tasks.MigrationEngine, opts tasks.RunOpts) *Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = styles.title

	return &Model{
		ctx:    ctx,
		engine: engine,
		opts:   opts,
		view:   ConfirmView,
		spin:   spin,
		bar:    progress.New(progress.WithDefaultGradient()),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case MigrateView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case runCompleteMsg:
		m.summary = msg.summary
		m.runErr = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case MigrateView:
		return m.renderMigrate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		return m, tea.Quit
	case "y":
		m.view = MigrateView
		return m, tea.Batch(m.startRun(), m.spin.Tick)
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "enter":
		return m, tea.Quit
	case "r":
		m.view = ConfirmView
		m.summary = nil
		m.runErr = nil
		m.progress = tasks.ProgressUpdate{}
		return m, nil
	}
	return m, nil
}

// startRun launches the migration in a goroutine. Completion is signalled on
// a separate channel so the final summary is never lost to a dropped
// progress update.
func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan runCompleteMsg, 1)

	progressChan := m.progressChan
	done := m.done
	go func() {
		summary, err := m.engine.Run(m.ctx, progressChan, m.opts)
		done <- runCompleteMsg{summary: summary, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	done := m.done
	return func() tea.Msg {
		if progressChan == nil {
			return <-done
		}
		update, ok := <-progressChan
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Migrate your SoundCloud likes to Spotify?")
	info := "\nLiked tracks will be matched against the Spotify catalog\nand added to a playlist in their liked order.\n"
	if m.opts.DryRun {
		info += styles.warn.Render("Dry run: no playlist will be created.") + "\n"
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderMigrate() string {
	title := styles.title.Render("Migrating Likes")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLikes:
		phase = "Fetching liked tracks..."
	case tasks.StartBatch, tasks.ResolveTracks:
		phase = fmt.Sprintf("Resolving tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.CreatePlaylist:
		phase = "Creating Spotify playlist..."
	case tasks.WriteTracks:
		phase = "Adding tracks to playlist..."
	default:
		phase = "Working..."
	}

	var bar string
	if m.progress.Phase == tasks.ResolveTracks && m.progress.Total > 0 {
		bar = "\n" + m.bar.ViewAs(float64(m.progress.Step)/float64(m.progress.Total))
	}

	return fmt.Sprintf("%s\n\n%s %s%s\n%s", title, m.spin.View(), phase, bar, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.runErr != nil {
		return fmt.Sprintf("%s\n\n%s",
			styles.err.Render(fmt.Sprintf("Migration failed: %v", m.runErr)), helpView)
	}
	if m.summary == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Migration Complete!")
	info := fmt.Sprintf(
		"\nTracks: %d\nMatched: %d\nAI resolved: %d\nUnmatched: %d\nErrored: %d",
		m.summary.Total(),
		m.summary.Matched,
		m.summary.AIResolved,
		m.summary.Unmatched,
		m.summary.Errored,
	)
	if m.summary.Playlist != nil {
		info += fmt.Sprintf("\nPlaylist: %s", m.summary.Playlist.Name)
		if m.summary.Playlist.URL != "" {
			info += fmt.Sprintf("\n%s", styles.help.Render(m.summary.Playlist.URL))
		}
	}

	var failed string
	if m.summary.Unmatched+m.summary.Errored > 0 {
		failed = "\n\n" + styles.warn.Render(fmt.Sprintf("%d tracks were not migrated:", m.summary.Unmatched+m.summary.Errored))
		for _, result := range m.summary.Results {
			if !result.Matched() {
				failed += fmt.Sprintf("\n  • %s - %s (%s)", result.SourceArtist, result.SourceTitle, result.Reason)
			}
		}
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
