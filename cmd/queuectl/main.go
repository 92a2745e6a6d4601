// Command queuectl is an operator tool for inspecting practice-scheduling
// state without mutating it. Its one mode today, preview, runs the Window
// Computer and Queue Generator against live data and renders the result,
// the same read-only diagnostic an operator would otherwise need an ad hoc
// script for.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sboagy/tunetrees-go/internal/cache"
	"github.com/sboagy/tunetrees-go/internal/config"
	"github.com/sboagy/tunetrees-go/internal/models"
	"github.com/sboagy/tunetrees-go/internal/prefs"
	"github.com/sboagy/tunetrees-go/internal/queue"
	"github.com/sboagy/tunetrees-go/internal/repository"
	"github.com/sboagy/tunetrees-go/internal/schedwindow"
	"github.com/sboagy/tunetrees-go/internal/storage"
)

func main() {
	userRef := flag.String("user", "", "user_ref to preview")
	playlistRef := flag.Int64("playlist", 0, "playlist_ref to preview")
	sitDown := flag.String("sit-down", "", "sit-down instant, \"2006-01-02 15:04:05\" UTC (default: now)")
	tzOffset := flag.Int("tz-offset", 0, "local timezone offset in minutes")
	hasTZOffset := flag.Bool("has-tz-offset", false, "apply -tz-offset (unset leaves the window computer timezone-naive)")
	dbPath := flag.String("db", "", "override DATABASE_URL")
	flag.Parse()

	if *userRef == "" || *playlistRef == 0 {
		fmt.Fprintln(os.Stderr, "usage: queuectl -user <user_ref> -playlist <playlist_ref> [-sit-down ...] [-tz-offset ...] [-has-tz-offset]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *dbPath != "" {
		cfg.DatabaseURL = *dbPath
	}

	db, err := storage.NewSQLiteStore(storage.Config{DatabasePath: cfg.DatabaseURL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	sitDownTS := time.Now().UTC()
	if *sitDown != "" {
		parsed, err := schedwindow.ParseTimestamp(*sitDown)
		if err != nil {
			fmt.Fprintf(os.Stderr, "malformed -sit-down: %v\n", err)
			os.Exit(1)
		}
		sitDownTS = parsed
	}

	var tzOffsetMinutes *int
	if *hasTZOffset {
		tzOffsetMinutes = tzOffset
	}

	repos := repository.NewManager(db)
	prefsStore := prefs.New(repos.Prefs(), cache.New())
	defer prefsStore.Close()

	m := newPreviewModel(repos, prefsStore, *userRef, *playlistRef, sitDownTS, tzOffsetMinutes)

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "queuectl: %v\n", err)
		os.Exit(1)
	}
}

// previewRow is one rendered candidate line.
type previewRow struct {
	bucket   string
	tuneRef  int64
	title    string
	ts       string
	selected bool
}

type previewResultMsg struct {
	rows []previewRow
	err  error
}

type previewModel struct {
	repos       repository.Manager
	prefs       *prefs.Store
	userRef     string
	playlistRef int64
	sitDown     time.Time
	tzOffset    *int

	rows     []previewRow
	err      error
	loading  bool
	quitting bool
}

func newPreviewModel(repos repository.Manager, prefsStore *prefs.Store, userRef string, playlistRef int64, sitDown time.Time, tzOffset *int) previewModel {
	return previewModel{
		repos:       repos,
		prefs:       prefsStore,
		userRef:     userRef,
		playlistRef: playlistRef,
		sitDown:     sitDown,
		tzOffset:    tzOffset,
		loading:     true,
	}
}

func (m previewModel) Init() tea.Cmd {
	return m.runPreview
}

// runPreview computes the candidate set the same way GenerateOrGet would,
// without writing a snapshot row: it is the dry-run the spec calls for.
func (m previewModel) runPreview() tea.Msg {
	ctx := context.Background()

	schedPrefs, err := m.prefs.SchedulingPrefsOrDefault(ctx, m.userRef)
	if err != nil {
		return previewResultMsg{err: fmt.Errorf("loading scheduling prefs: %w", err)}
	}

	w := schedwindow.Compute(m.sitDown, m.tzOffset, schedPrefs.AcceptableDelinquencyWindow)

	candidates, err := m.repos.Tunes().ListJoined(ctx, repository.TuneFilter{UserRef: m.userRef, PlaylistRef: m.playlistRef})
	if err != nil {
		return previewResultMsg{err: fmt.Errorf("listing candidates: %w", err)}
	}

	selected := queue.Generate(candidates, queue.Params{
		Windows:          w,
		MinReviewsPerDay: schedPrefs.MinReviewsPerDay,
		MaxReviewsPerDay: schedPrefs.MaxReviewsPerDay,
		EnableBackfill:   false,
	})

	rows := make([]previewRow, 0, len(selected))
	for _, c := range selected {
		rows = append(rows, previewRow{
			bucket:   bucketLabel(c.Bucket),
			tuneRef:  c.Tune.ID,
			title:    c.Tune.Title,
			ts:       schedwindow.FormatTimestamp(c.Ts),
			selected: true,
		})
	}
	return previewResultMsg{rows: rows}
}

func bucketLabel(b models.Bucket) string {
	switch b {
	case models.BucketDueToday:
		return "due_today"
	case models.BucketRecentlyLapsed:
		return "recently_lapsed"
	case models.BucketOlderBacklog:
		return "older_backlog"
	default:
		return "unknown"
	}
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case previewResultMsg:
		m.loading = false
		m.rows = msg.rows
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	dueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	lapsedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	backlogStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

func (m previewModel) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return errStyle.Render(fmt.Sprintf("error: %v\n", m.err))
	}
	if m.loading {
		return "computing queue preview...\n"
	}

	out := headerStyle.Render(fmt.Sprintf("queue preview: user=%s playlist=%d sit_down=%s",
		m.userRef, m.playlistRef, schedwindow.FormatTimestamp(m.sitDown))) + "\n\n"

	if len(m.rows) == 0 {
		return out + "no candidates selected for this window\n\npress q to quit\n"
	}

	for _, r := range m.rows {
		style := backlogStyle
		switch r.bucket {
		case "due_today":
			style = dueStyle
		case "recently_lapsed":
			style = lapsedStyle
		}
		out += fmt.Sprintf("%-16s %8d  %-40s  %s\n", style.Render(r.bucket), r.tuneRef, r.title, r.ts)
	}

	out += "\npress q to quit\n"
	return out
}
