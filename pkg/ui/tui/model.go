package tui

import (
	"fmt"
	"time"

	"emotedl/pkg/models"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Stage is where the current user query is
type Stage int

const (
	StageIdle Stage = iota
	StageLoadingPage
	StageScrolling
	StageDownloading
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLoadingPage:
		return "Loading page"
	case StageScrolling:
		return "Loading emotes"
	case StageDownloading:
		return "Downloading"
	case StageDone:
		return "Done"
	default:
		return "Idle"
	}
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the dashboard state. Only Update mutates it.
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	stage       Stage
	userID      string
	displayName string
	loaded      int
	total       int
	counters    models.Counters
	bytes       int64
	failures    []string

	sessionStartTime time.Time
	userStartTime    time.Time
	usersDone        int

	width          int
	height         int
	showHelp       bool
	showFailures   bool
	logMessages    []LogMessage
	maxLogMessages int
}

// NewModel creates a new dashboard model
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		progress:         p,
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// StartUser resets the per-user state
func (m *Model) StartUser(userID string) {
	m.stage = StageLoadingPage
	m.userID = userID
	m.displayName = ""
	m.loaded = 0
	m.total = 0
	m.counters = models.Counters{}
	m.bytes = 0
	m.failures = nil
	m.userStartTime = time.Now()
}

func (m *Model) SetDisplayName(name string) {
	m.displayName = name
	m.stage = StageScrolling
}

func (m *Model) SetLoaded(count int) {
	m.loaded = count
}

// FinishListing moves to the download stage with the final entry count
func (m *Model) FinishListing(count int) {
	m.loaded = count
	m.total = count
	m.stage = StageDownloading
}

// RecordOutcome folds one download outcome into the dashboard
func (m *Model) RecordOutcome(o models.DownloadOutcome) {
	m.counters = m.counters.Add(o)
	m.bytes += int64(o.Size)
	if o.Total > m.total {
		m.total = o.Total
	}

	if o.Kind == models.OutcomeFailed {
		reason := fmt.Sprint(o.StatusCode)
		if o.StatusCode == 0 && o.Err != nil {
			reason = o.Err.Error()
		}
		m.failures = append(m.failures, fmt.Sprintf("%s (%s) %s", o.Asset.Name, reason, o.Asset.DownloadURL))
	}
}

// FinishUser marks the current user as done
func (m *Model) FinishUser(c models.Counters) {
	m.counters = c
	m.stage = StageDone
	m.usersDone++
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = lipgloss.Color("#FF0000")
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Percent is the share of assets with an outcome
func (m *Model) Percent() float64 {
	if m.total == 0 {
		return 0
	}
	p := float64(m.counters.Attempted) / float64(m.total)
	if p > 1 {
		p = 1
	}
	return p
}

// Rate returns successful downloads per minute for the current user
func (m *Model) Rate() float64 {
	elapsed := time.Since(m.userStartTime).Minutes()
	if elapsed <= 0 || m.userStartTime.IsZero() {
		return 0
	}
	return float64(m.counters.Succeeded) / elapsed
}

// Failures returns the failure lines of the current user
func (m *Model) Failures() []string {
	return m.failures
}
